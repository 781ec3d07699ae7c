package app

import (
	"github.com/go-kit/log/level"

	"cyphertext/internal/domain"
	messagesvc "cyphertext/internal/services/message"
	"cyphertext/internal/services/peerkey"
	sessionsvc "cyphertext/internal/services/session"
)

// App is the runtime of one logged-in participant.
type App struct {
	Session *sessionsvc.Session
	Keys    *peerkey.Service
	Engine  *messagesvc.Service

	wire *Wire
}

func newApp(w *Wire, sess *sessionsvc.Session, notifier domain.Notifier) (*App, error) {
	keys, err := peerkey.New(sess, w.Relay, w.Config.KeyCacheSize)
	if err != nil {
		sess.Destroy()
		return nil, err
	}
	engine := messagesvc.New(messagesvc.Options{
		Self:          sess.Participant,
		Keys:          keys,
		Primary:       w.Relay,
		Cache:         w.Cache,
		Conversations: w.Conversations,
		Notifier:      notifier,
		Logger:        w.Logger,
		Timeout:       w.Config.TransportTimeout,
	})
	if err := engine.LoadConversations(); err != nil {
		level.Warn(w.Logger).Log("msg", "load conversations", "err", err)
	}
	return &App{Session: sess, Keys: keys, Engine: engine, wire: w}, nil
}

// Logout stops live delivery and destroys the session keys.
func (a *App) Logout() {
	a.Engine.Stop()
	a.Keys.Purge()
	a.wire.Sessions.Logout(a.Session)
}
