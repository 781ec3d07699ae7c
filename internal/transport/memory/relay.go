// Package memory is an in-process relay: a directory and an envelope log
// held in maps, with buffered live fan-out to subscribers. The relay server
// uses it as its default backend and tests use it as a shared transport.
package memory

import (
	"context"
	"sort"
	"sync"

	"cyphertext/internal/domain"
	"cyphertext/internal/metrics"
)

// SubscriberBuffer is how many pushes may queue for one subscriber before
// further pushes to it are dropped.
const SubscriberBuffer = 256

// subscriber drains its queue on its own goroutine so a slow callback
// never holds up Append.
type subscriber struct {
	queue chan domain.Envelope
	done  chan struct{}
}

// Relay implements domain.Directory and domain.Transport in memory.
type Relay struct {
	mu      sync.RWMutex
	keys    map[domain.ParticipantID]string
	logs    map[domain.ConversationID][]domain.Envelope
	subs    map[uint64]*subscriber
	nextSub uint64
}

// New returns an empty Relay.
func New() *Relay {
	return &Relay{
		keys: make(map[domain.ParticipantID]string),
		logs: make(map[domain.ConversationID][]domain.Envelope),
		subs: make(map[uint64]*subscriber),
	}
}

// Configured is always true for an in-process relay.
func (r *Relay) Configured() bool { return true }

// GetPublicKey returns the key participant last published.
func (r *Relay) GetPublicKey(_ context.Context, participant domain.ParticipantID) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[participant]
	return k, ok, nil
}

// Publish stores or overwrites the participant's key.
func (r *Relay) Publish(_ context.Context, participant domain.ParticipantID, publicKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[participant] = publicKey
	return nil
}

// Append adds envelope to the conversation log and queues it for every
// subscriber. A stored envelope is immutable: re-appending its ID is a
// no-op. A subscriber whose queue is full misses the push and catches up
// through History.
func (r *Relay) Append(ctx context.Context, conversationID domain.ConversationID, envelope domain.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	envelope.ConversationID = conversationID

	r.mu.Lock()
	defer r.mu.Unlock()
	log := r.logs[conversationID]
	for i := range log {
		if log[i].ID == envelope.ID {
			return nil
		}
	}
	r.logs[conversationID] = append(log, envelope)
	for _, sub := range r.subs {
		select {
		case sub.queue <- envelope:
		default:
			metrics.PushesDroppedTotal.Inc()
		}
	}
	return nil
}

// History returns the conversation log ordered by CreatedAt.
func (r *Relay) History(ctx context.Context, conversationID domain.ConversationID) ([]domain.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := append([]domain.Envelope(nil), r.logs[conversationID]...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// Subscribe registers fn for every future append. fn runs on a goroutine
// owned by the subscription, one envelope at a time in append order. The
// subscription ends when the returned function is called or ctx is
// cancelled; once unsubscribe returns fn is not called again.
func (r *Relay) Subscribe(ctx context.Context, fn func(domain.Envelope)) (func(), error) {
	sub := &subscriber{
		queue: make(chan domain.Envelope, SubscriberBuffer),
		done:  make(chan struct{}),
	}
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = sub
	r.mu.Unlock()

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		for {
			select {
			case env := <-sub.queue:
				fn(env)
			case <-sub.done:
				return
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(sub.done)
			<-exited
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-exited:
		}
	}()
	return unsubscribe, nil
}

var _ domain.Relay = (*Relay)(nil)
