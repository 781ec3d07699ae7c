package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// open <peer|global>: sync the conversation and print every record.
func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <peer|global>",
		Short: "Sync a conversation and print its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logout()

			stop := startSpinner("Syncing conversation...")
			res, err := a.Engine.OpenConversation(cmd.Context(), conversationFor(a, args[0]))
			stop()
			if err != nil {
				return err
			}
			if res.RemoteUnavailable {
				fmt.Fprintln(os.Stderr, dim.Sprint("relay unavailable; showing cached messages"))
			}
			for _, r := range res.Records {
				printRecord(os.Stdout, r)
			}
			if len(res.Undecryptable) > 0 {
				fmt.Fprintln(os.Stderr, dim.Sprintf("%d undecryptable: %s", len(res.Undecryptable), strings.Join(res.Undecryptable, ", ")))
			}
			return nil
		},
	}
}
