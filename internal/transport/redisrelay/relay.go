// Package redisrelay stores the directory and envelope log in Redis so
// several relay processes can serve the same participants. Live delivery
// uses Redis pub/sub.
package redisrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"

	"cyphertext/internal/domain"
)

const defaultPrefix = "cyphertext"

// Relay implements domain.Directory and domain.Transport on Redis.
//
// Keys:
//
//	<prefix>:keys            hash participant -> public key
//	<prefix>:log:<conv>      sorted set of envelope JSON scored by CreatedAt
//	<prefix>:ids:<conv>      hash envelope id -> 1, for idempotent appends
//	<prefix>:envelopes       pub/sub channel for live delivery
type Relay struct {
	client *redis.Client
	prefix string
	logger log.Logger
}

// New wraps an existing client. An empty prefix selects "cyphertext".
func New(client *redis.Client, prefix string, logger log.Logger) *Relay {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Relay{client: client, prefix: prefix, logger: logger}
}

// Configured reports whether a client is attached.
func (r *Relay) Configured() bool { return r.client != nil }

func (r *Relay) keysKey() string                       { return r.prefix + ":keys" }
func (r *Relay) channel() string                       { return r.prefix + ":envelopes" }
func (r *Relay) logKey(c domain.ConversationID) string { return r.prefix + ":log:" + c.String() }
func (r *Relay) idsKey(c domain.ConversationID) string { return r.prefix + ":ids:" + c.String() }

// GetPublicKey returns the key participant last published.
func (r *Relay) GetPublicKey(ctx context.Context, participant domain.ParticipantID) (string, bool, error) {
	k, err := r.client.HGet(ctx, r.keysKey(), participant.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get public key %s: %w", participant, err)
	}
	return k, true, nil
}

// Publish stores or overwrites the participant's key.
func (r *Relay) Publish(ctx context.Context, participant domain.ParticipantID, publicKey string) error {
	if err := r.client.HSet(ctx, r.keysKey(), participant.String(), publicKey).Err(); err != nil {
		return fmt.Errorf("publish key %s: %w", participant, err)
	}
	return nil
}

// appendScript stores an envelope once. The id marker is written after the
// log entry so a failed ZADD leaves no trace and a retry can succeed.
//
//	KEYS[1] ids hash, KEYS[2] log sorted set
//	ARGV[1] id, ARGV[2] score, ARGV[3] envelope JSON, ARGV[4] channel
var appendScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 1 then
	return 0
end
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
redis.call("HSET", KEYS[1], ARGV[1], 1)
redis.call("PUBLISH", ARGV[4], ARGV[3])
return 1
`)

// Append adds envelope to the conversation log once and announces it on the
// envelopes channel. The check and the write run as one script, so a
// stored envelope is never replaced and a failed append stores nothing.
func (r *Relay) Append(ctx context.Context, conversationID domain.ConversationID, envelope domain.Envelope) error {
	envelope.ConversationID = conversationID
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	keys := []string{r.idsKey(conversationID), r.logKey(conversationID)}
	fresh, err := appendScript.Run(ctx, r.client, keys, envelope.ID, envelope.CreatedAt, data, r.channel()).Int()
	if err != nil {
		return fmt.Errorf("append %s: %w", envelope.ID, err)
	}
	if fresh == 0 {
		level.Debug(r.logger).Log("msg", "duplicate envelope ignored", "conversation", conversationID, "id", envelope.ID)
	}
	return nil
}

// History returns the conversation log ordered by CreatedAt.
func (r *Relay) History(ctx context.Context, conversationID domain.ConversationID) ([]domain.Envelope, error) {
	members, err := r.client.ZRange(ctx, r.logKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", conversationID, err)
	}
	out := make([]domain.Envelope, 0, len(members))
	for _, m := range members {
		var env domain.Envelope
		if err := json.Unmarshal([]byte(m), &env); err != nil {
			level.Warn(r.logger).Log("msg", "skipping malformed envelope", "conversation", conversationID, "err", err)
			continue
		}
		out = append(out, env)
	}
	return out, nil
}

// Subscribe delivers envelopes published by any relay process sharing the
// Redis instance.
func (r *Relay) Subscribe(ctx context.Context, fn func(domain.Envelope)) (func(), error) {
	ps := r.client.Subscribe(ctx, r.channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var env domain.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				level.Warn(r.logger).Log("msg", "dropping malformed push", "err", err)
				continue
			}
			fn(env)
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			_ = ps.Close()
			<-done
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()
	return unsubscribe, nil
}

var _ domain.Relay = (*Relay)(nil)
