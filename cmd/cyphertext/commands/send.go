package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cyphertext/internal/chat/command"
)

// send <peer|global> <message>: compose, echo locally and deliver.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer|global> <message...>",
		Short: "Send a message or a #command",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := command.Compose(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			a, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logout()

			conv := conversationFor(a, args[0])
			stop := startSpinner("Sending...")
			rec, err := a.Engine.SendMessage(cmd.Context(), conv, text)
			stop()
			if err != nil {
				return err
			}
			if !a.Engine.TransportAvailable() {
				fmt.Printf("saved locally as %s (no relay)\n", rec.ID)
				return nil
			}
			fmt.Printf("sent %s to %s\n", rec.ID, conv)
			return nil
		},
	}
}
