package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cyphertext/internal/crypto"
)

// publish: log in so the public key lands in the relay directory.
func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish your public key to the relay directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !wire.Relay.Configured() {
				return fmt.Errorf("no relay configured. use --relay")
			}
			a, err := login(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logout()
			if !a.Session.Published {
				return fmt.Errorf("relay rejected the key; see log")
			}
			fp, err := crypto.FingerprintPublicKey(a.Session.PublicKey)
			if err != nil {
				return err
			}
			fmt.Printf("Published %s (fingerprint %s)\n", a.Session.Participant, fp)
			return nil
		},
	}
}
