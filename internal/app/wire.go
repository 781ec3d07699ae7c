package app

import (
	"context"
	"io"
	"path/filepath"

	"github.com/go-kit/log"

	"cyphertext/internal/domain"
	"cyphertext/internal/relay"
	identitysvc "cyphertext/internal/services/identity"
	sessionsvc "cyphertext/internal/services/session"
	"cyphertext/internal/store"
)

const sqliteFilename = "messages.db"

// Wire bundles the stores and clients that exist before login.
type Wire struct {
	Config        Config
	Identity      domain.IdentityStore
	IDs           domain.IdentityService
	Sessions      *sessionsvc.Service
	Relay         *relay.Client
	Cache         domain.LocalCache
	Conversations domain.ConversationStore
	Logger        log.Logger

	closers []io.Closer
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, logger log.Logger) (*Wire, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Wire{Config: cfg, Logger: logger}

	// File-based stores
	identityStore := store.NewIdentityFileStore(cfg.Home)
	w.Identity = identityStore
	w.IDs = identitysvc.New(identityStore)
	w.Conversations = store.NewConversationFileStore(cfg.Home)

	switch cfg.Cache {
	case CacheSQLite:
		db, err := store.NewMessageSQLiteStore(filepath.Join(cfg.Home, sqliteFilename))
		if err != nil {
			return nil, err
		}
		w.Cache = db
		w.closers = append(w.closers, db)
	default:
		w.Cache = store.NewMessageFileStore(cfg.Home)
	}

	// Relay client; unconfigured when RelayURL is empty
	w.Relay = relay.NewClient(cfg.RelayURL, cfg.TransportTimeout, log.With(logger, "component", "relay"))
	w.Sessions = sessionsvc.New(identityStore, w.Relay, logger)
	return w, nil
}

// Login starts a session and builds the runtime around it.
func (w *Wire) Login(ctx context.Context, participant domain.ParticipantID, passphrase string, notifier domain.Notifier) (*App, error) {
	sess, err := w.Sessions.Login(ctx, participant, passphrase)
	if err != nil {
		return nil, err
	}
	return newApp(w, sess, notifier)
}

// Close releases stores that hold OS resources.
func (w *Wire) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
