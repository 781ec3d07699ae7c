package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cyphertext/internal/app"
	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
	"cyphertext/internal/logging"
	"cyphertext/internal/notify"
)

const globalAlias = "global"

var (
	home        string
	passphrase  string
	relayURL    string
	participant string
	configPath  string
	logLevel    string
	timeout     time.Duration

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:          "cyphertext",
		Short:        "End-to-end encrypted wallet-to-wallet chat CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			logging.Configure(os.Stderr, cfg.LogLevel)

			wire, err = app.NewWire(cfg, logging.Logger)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.cyphertext)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity; empty logs in as a guest")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&participant, "as", "", "participant id (wallet address or handle)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default <home>/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn, error or none")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-call relay timeout")

	root.AddCommand(
		keygenCmd(),
		fingerprintCmd(),
		publishCmd(),
		sendCmd(),
		openCmd(),
		listenCmd(),
		conversationsCmd(),
	)
	return root.Execute()
}

func applyFlags(cmd *cobra.Command, cfg *app.Config) error {
	if home != "" {
		cfg.Home = home
	}
	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfg.Home = filepath.Join(dir, ".cyphertext")
	}
	if configPath == "" {
		loaded, err := app.LoadConfig(filepath.Join(cfg.Home, "config.yaml"))
		if err != nil {
			return err
		}
		loaded.Home = cfg.Home
		*cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("relay") {
		cfg.RelayURL = relayURL
	}
	if flags.Changed("as") {
		cfg.Participant = participant
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("timeout") {
		cfg.TransportTimeout = timeout
	}
	return nil
}

func self() (domain.ParticipantID, error) {
	if wire.Config.Participant == "" {
		return "", errors.New("participant required (--as or participant: in config)")
	}
	return domain.ParticipantID(wire.Config.Participant), nil
}

// login starts a session for the configured participant with console
// notifications.
func login(ctx context.Context) (*app.App, error) {
	me, err := self()
	if err != nil {
		return nil, err
	}
	return wire.Login(ctx, me, passphrase, notify.NewConsole(os.Stderr))
}

// conversationFor maps a CLI argument to a conversation id: "global", a
// full conversation id, or a peer to talk to directly.
func conversationFor(a *app.App, arg string) domain.ConversationID {
	switch {
	case arg == globalAlias:
		return domaintypes.GlobalConversationID
	case domaintypes.KindOf(domain.ConversationID(arg)) == domaintypes.KindGroup:
		return domain.ConversationID(arg)
	case strings.HasPrefix(arg, "dm_"):
		return domain.ConversationID(arg)
	default:
		return a.Engine.StartConversation(domain.ParticipantID(arg))
	}
}
