package peerkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"cyphertext/internal/crypto"
	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
	"cyphertext/internal/protocol/agreement"
	"cyphertext/internal/services/session"
)

// DefaultCacheSize bounds the number of derived keys kept in memory.
const DefaultCacheSize = 512

// ErrSessionClosed is returned after the session was destroyed.
var ErrSessionClosed = errors.New("session closed")

// Service resolves shared keys for one session.
type Service struct {
	sess  *session.Session
	dir   domain.Directory
	cache *lru.Cache[uint64, domain.SymmetricKey]
}

// New returns a resolver for sess backed by dir.
func New(sess *session.Session, dir domain.Directory, size int) (*Service, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[uint64, domain.SymmetricKey](size)
	if err != nil {
		return nil, err
	}
	return &Service{sess: sess, dir: dir, cache: cache}, nil
}

// SharedKey returns the key for the direct conversation with peer.
func (s *Service) SharedKey(ctx context.Context, peer domain.ParticipantID) (domain.SymmetricKey, error) {
	kp, ok := s.sess.KeyPair()
	if !ok {
		return domain.SymmetricKey{}, ErrSessionClosed
	}
	if s.dir == nil {
		return domain.SymmetricKey{}, fmt.Errorf("%s: %w", peer, domaintypes.ErrNoPublishedKey)
	}
	material, found, err := s.dir.GetPublicKey(ctx, peer)
	if err != nil {
		var te *domaintypes.TransportError
		if errors.As(err, &te) {
			return domain.SymmetricKey{}, err
		}
		return domain.SymmetricKey{}, &domaintypes.TransportError{Op: "directory lookup", Err: err}
	}
	if !found {
		return domain.SymmetricKey{}, fmt.Errorf("%s: %w", peer, domaintypes.ErrNoPublishedKey)
	}

	cacheKey := pairHash(s.sess.PublicKey, material)
	if key, ok := s.cache.Get(cacheKey); ok {
		return key, nil
	}

	pub, err := crypto.ImportPublicKey(material)
	if err != nil {
		return domain.SymmetricKey{}, fmt.Errorf("key of %s: %w", peer, err)
	}
	key, err := agreement.DeriveSharedKey(kp.Private, pub)
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	s.cache.Add(cacheKey, key)
	return key, nil
}

// Purge forgets every derived key.
func (s *Service) Purge() { s.cache.Purge() }

// Cached reports how many derived keys are held.
func (s *Service) Cached() int { return s.cache.Len() }

func pairHash(ours, theirs string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(ours)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(theirs)
	return d.Sum64()
}

var _ domain.KeyResolver = (*Service)(nil)
