package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"cyphertext/internal/crypto"
	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
	"cyphertext/internal/services/identity"
	"cyphertext/internal/util/memzero"
)

// ErrParticipantMismatch is returned when the stored identity was created
// for a different participant than the one logging in.
var ErrParticipantMismatch = errors.New("stored identity belongs to another participant")

// Session is the context object created at login and destroyed at logout.
// It owns the key pair for as long as the participant is logged in.
type Session struct {
	Participant domain.ParticipantID
	PublicKey   string
	Guest       bool
	Published   bool
	Started     time.Time

	mu      sync.RWMutex
	keyPair domain.IdentityKeyPair
}

// KeyPair returns the session key pair; ok is false after Destroy.
func (s *Session) KeyPair() (domain.IdentityKeyPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyPair, s.keyPair.Private != nil
}

// Destroy drops the key material. Further key lookups fail.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyPair = domain.IdentityKeyPair{}
}

// Service logs participants in and out.
//
// Login restores the persisted identity when a passphrase is given, or
// creates an ephemeral guest identity otherwise, then publishes the public
// key to the directory so peers can derive the shared key.
type Service struct {
	ids    domain.IdentityStore
	dir    domain.Directory
	logger log.Logger
	now    func() time.Time
}

// New constructs a Session Service. dir may be nil when no relay is configured.
func New(ids domain.IdentityStore, dir domain.Directory, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Service{ids: ids, dir: dir, logger: logger, now: time.Now}
}

// Login starts a session for participant.
func (s *Service) Login(ctx context.Context, participant domain.ParticipantID, passphrase string) (*Session, error) {
	if participant == "" {
		return nil, identity.ErrNoParticipant
	}
	if err := domaintypes.ValidateParticipant(participant); err != nil {
		return nil, err
	}

	var (
		id    domain.Identity
		err   error
		guest = passphrase == ""
	)
	if guest {
		id, err = identity.NewIdentity(participant, s.now())
	} else {
		id, err = s.ids.LoadIdentity(passphrase)
		if err == nil && id.Participant != participant {
			err = fmt.Errorf("%w: %s", ErrParticipantMismatch, id.Participant)
		}
	}
	if err != nil {
		return nil, err
	}

	kp, err := crypto.KeyPairFromIdentity(id)
	memzero.Zero(id.PrivateKey)
	if err != nil {
		return nil, err
	}
	sess := &Session{
		Participant: participant,
		PublicKey:   id.PublicKey,
		Guest:       guest,
		Started:     s.now(),
		keyPair:     kp,
	}

	if s.dir != nil && configured(s.dir) {
		if err := s.dir.Publish(ctx, participant, id.PublicKey); err != nil {
			level.Warn(s.logger).Log("msg", "publish public key", "participant", participant, "err", err)
		} else {
			sess.Published = true
		}
	}
	level.Info(s.logger).Log("msg", "session started", "participant", participant, "guest", guest, "published", sess.Published)
	return sess, nil
}

// Logout destroys the session.
func (s *Service) Logout(sess *Session) {
	if sess == nil {
		return
	}
	sess.Destroy()
	level.Info(s.logger).Log("msg", "session ended", "participant", sess.Participant)
}

func configured(v any) bool {
	if c, ok := v.(domain.Configurable); ok {
		return c.Configured()
	}
	return true
}
