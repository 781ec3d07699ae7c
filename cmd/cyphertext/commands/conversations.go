package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List conversations with unread counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logout()

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tUNREAD")
			for _, c := range a.Engine.Conversations() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", c.ID, c.Name, c.Kind, c.UnreadCount)
			}
			return tw.Flush()
		},
	}
}
