package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"cyphertext/internal/logging"
)

// listen: stay subscribed, print the foreground conversation as it grows
// and resync it on a schedule to catch pushes missed while offline.
func listenCmd() *cobra.Command {
	var (
		convArg string
		resync  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stay online and print incoming messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !wire.Relay.Configured() {
				return fmt.Errorf("no relay configured. use --relay")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := login(ctx)
			if err != nil {
				return err
			}
			defer a.Logout()

			conv := conversationFor(a, convArg)
			if _, err := a.Engine.OpenConversation(ctx, conv); err != nil {
				return err
			}
			if err := a.Engine.Start(ctx); err != nil {
				return err
			}

			var (
				mu      sync.Mutex
				printed = make(map[string]struct{})
			)
			flush := func() {
				mu.Lock()
				defer mu.Unlock()
				for _, r := range a.Engine.Messages(conv) {
					if _, ok := printed[r.ID]; ok {
						continue
					}
					printed[r.ID] = struct{}{}
					printRecord(os.Stdout, r)
				}
			}
			flush()

			c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
			if _, err := c.AddFunc(fmt.Sprintf("@every %s", resync), func() {
				res, err := a.Engine.OpenConversation(ctx, conv)
				if err != nil {
					level.Error(logging.Logger).Log("msg", "resync", "conversation", conv, "err", err)
					return
				}
				level.Debug(logging.Logger).Log("msg", "resync", "conversation", conv, "added", res.Added, "remote_unavailable", res.RemoteUnavailable)
			}); err != nil {
				return err
			}
			if _, err := c.AddFunc("@every 1s", flush); err != nil {
				return err
			}
			c.Start()
			fmt.Fprintln(os.Stderr, dim.Sprintf("listening on %s as %s, ctrl-c to quit", conv, a.Session.Participant))

			<-ctx.Done()
			<-c.Stop().Done()
			flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&convArg, "conversation", globalAlias, "peer, conversation id or \"global\" to keep in the foreground")
	cmd.Flags().DurationVar(&resync, "resync", 30*time.Second, "interval between full resyncs")
	return cmd
}
