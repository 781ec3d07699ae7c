package message_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
	"cyphertext/internal/notify"
	"cyphertext/internal/protocol/aead"
	"cyphertext/internal/services/message"
	"cyphertext/internal/services/peerkey"
	"cyphertext/internal/services/session"
	"cyphertext/internal/store"
	"cyphertext/internal/transport/memory"
)

// countingKeys records how often the engine asks for a shared key.
type countingKeys struct {
	inner domain.KeyResolver
	calls atomic.Int32
}

func (c *countingKeys) SharedKey(ctx context.Context, peer domain.ParticipantID) (domain.SymmetricKey, error) {
	c.calls.Add(1)
	return c.inner.SharedKey(ctx, peer)
}

// brokenTransport fails every call.
type brokenTransport struct{ configured bool }

func (b brokenTransport) Configured() bool { return b.configured }

func (brokenTransport) Append(context.Context, domain.ConversationID, domain.Envelope) error {
	return errors.New("connection refused")
}

func (brokenTransport) History(context.Context, domain.ConversationID) ([]domain.Envelope, error) {
	return nil, errors.New("connection refused")
}

func (brokenTransport) Subscribe(context.Context, func(domain.Envelope)) (func(), error) {
	return func() {}, nil
}

type peer struct {
	engine *message.Service
	keys   *countingKeys
	notes  *notify.Channel
	cache  *store.MessageFileStore
}

func newPeer(t *testing.T, relay *memory.Relay, who domain.ParticipantID, tweak func(*message.Options)) *peer {
	t.Helper()
	sess, err := session.New(store.NewIdentityFileStore(t.TempDir()), relay, nil).Login(context.Background(), who, "")
	require.NoError(t, err)
	resolver, err := peerkey.New(sess, relay, 0)
	require.NoError(t, err)

	p := &peer{
		keys:  &countingKeys{inner: resolver},
		notes: notify.NewChannel(16),
		cache: store.NewMessageFileStore(t.TempDir()),
	}
	opts := message.Options{
		Self:     who,
		Keys:     p.keys,
		Primary:  relay,
		Cache:    p.cache,
		Notifier: p.notes,
	}
	if tweak != nil {
		tweak(&opts)
	}
	p.engine = message.New(opts)
	return p
}

func TestDirectMessage_EndToEnd(t *testing.T) {
	ctx := context.Background()
	relay := memory.New()
	alice := newPeer(t, relay, "alice-wallet", nil)
	bob := newPeer(t, relay, "bob-wallet", nil)
	dm := domaintypes.DirectConversationID("alice-wallet", "bob-wallet")

	echo, err := alice.engine.SendMessage(ctx, dm, "hello bob")
	require.NoError(t, err)
	assert.Equal(t, domaintypes.LocalSenderLabel, echo.SenderLabel)
	assert.True(t, echo.SentByLocalUser)

	wire, err := relay.History(ctx, dm)
	require.NoError(t, err)
	require.Len(t, wire, 1)
	assert.NotContains(t, wire[0].Ciphertext, "hello bob")
	assert.NotEmpty(t, wire[0].Nonce)
	assert.Equal(t, echo.ID, wire[0].ID)

	res, err := bob.engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	assert.False(t, res.RemoteUnavailable)
	assert.Equal(t, 1, res.Added)
	require.Len(t, res.Records, 1)
	got := res.Records[0]
	assert.Equal(t, "hello bob", got.Text)
	assert.Equal(t, "alice-", got.SenderLabel)
	assert.False(t, got.SentByLocalUser)

	// The sender reads its own message back from the log as well.
	mine, err := alice.engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	require.Len(t, mine.Records, 1)
	assert.Equal(t, domaintypes.LocalSenderLabel, mine.Records[0].SenderLabel)
	assert.Zero(t, mine.Added)
}

func TestOpenConversation_Idempotent(t *testing.T) {
	ctx := context.Background()
	relay := memory.New()
	alice := newPeer(t, relay, "alice", nil)
	bob := newPeer(t, relay, "bob", nil)
	dm := domaintypes.DirectConversationID("alice", "bob")

	for _, text := range []string{"one", "two", "three"} {
		_, err := alice.engine.SendMessage(ctx, dm, text)
		require.NoError(t, err)
	}

	first, err := bob.engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Added)
	calls := bob.keys.calls.Load()
	assert.EqualValues(t, 1, calls)

	second, err := bob.engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	assert.Zero(t, second.Added)
	assert.Len(t, second.Records, 3)
	assert.Equal(t, calls, bob.keys.calls.Load())

	cached, err := bob.cache.Get(ctx, dm)
	require.NoError(t, err)
	assert.Len(t, cached, 3)
}

func TestSendMessage_UnpublishedPeer(t *testing.T) {
	ctx := context.Background()
	relay := memory.New()
	alice := newPeer(t, relay, "alice", nil)
	dm := domaintypes.DirectConversationID("alice", "carol")

	echo, err := alice.engine.SendMessage(ctx, dm, "anyone there?")
	require.ErrorIs(t, err, domaintypes.ErrNoPublishedKey)

	wire, err := relay.History(ctx, dm)
	require.NoError(t, err)
	assert.Empty(t, wire)

	require.Len(t, alice.notes.C, 1)
	n := <-alice.notes.C
	assert.Equal(t, domaintypes.SeverityError, n.Severity)
	assert.Equal(t, dm, n.ConversationID)

	msgs := alice.engine.Messages(dm)
	require.Len(t, msgs, 1)
	assert.Equal(t, echo.ID, msgs[0].ID)
}

func TestGlobalChannel_Plaintext(t *testing.T) {
	ctx := context.Background()
	relay := memory.New()
	alice := newPeer(t, relay, "alice", nil)
	bob := newPeer(t, relay, "bob", nil)

	_, err := alice.engine.SendMessage(ctx, domaintypes.GlobalConversationID, "gm everyone")
	require.NoError(t, err)

	wire, err := relay.History(ctx, domaintypes.GlobalConversationID)
	require.NoError(t, err)
	require.Len(t, wire, 1)
	assert.Equal(t, "gm everyone", wire[0].Ciphertext)
	assert.Empty(t, wire[0].Nonce)

	res, err := bob.engine.OpenConversation(ctx, domaintypes.GlobalConversationID)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "gm everyone", res.Records[0].Text)
	assert.Zero(t, bob.keys.calls.Load())
	assert.Zero(t, alice.keys.calls.Load())
}

func TestHandleEnvelope_LivePath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay := memory.New()
	alice := newPeer(t, relay, "alice", nil)
	bob := newPeer(t, relay, "bob", nil)
	require.NoError(t, bob.engine.Start(ctx))
	defer bob.engine.Stop()
	dm := domaintypes.DirectConversationID("alice", "bob")

	_, err := alice.engine.SendMessage(ctx, dm, "ping")
	require.NoError(t, err)
	_, err = alice.engine.SendMessage(ctx, dm, "ping again")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bob.engine.UnreadCount(dm) == 2 && len(bob.notes.C) == 1
	}, 2*time.Second, 10*time.Millisecond)
	msgs := bob.engine.Messages(dm)
	require.Len(t, msgs, 2)
	assert.Equal(t, "ping", msgs[0].Text)

	n := <-bob.notes.C
	assert.Equal(t, domaintypes.SeverityInfo, n.Severity)
	assert.Contains(t, n.Body, "alice")

	var listed bool
	for _, c := range bob.engine.Conversations() {
		if c.ID == dm {
			listed = true
			assert.Equal(t, domaintypes.KindDirect, c.Kind)
		}
	}
	assert.True(t, listed)

	res, err := bob.engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	assert.Zero(t, res.Added)
	assert.Zero(t, bob.engine.UnreadCount(dm))

	_, err = alice.engine.SendMessage(ctx, dm, "while you watch")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(bob.engine.Messages(dm)) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, bob.engine.UnreadCount(dm))
}

func TestHandleEnvelope_Ignored(t *testing.T) {
	ctx := context.Background()
	relay := memory.New()
	bob := newPeer(t, relay, "bob", nil)

	own := domain.Envelope{ID: "1", ConversationID: domaintypes.GlobalConversationID, SenderID: "bob", Ciphertext: "me"}
	require.NoError(t, bob.engine.HandleEnvelope(ctx, own))
	other := domain.Envelope{ID: "2", ConversationID: domaintypes.DirectConversationID("alice", "carol"), SenderID: "alice", Ciphertext: "x"}
	require.NoError(t, bob.engine.HandleEnvelope(ctx, other))

	assert.Empty(t, bob.engine.Messages(domaintypes.GlobalConversationID))
	assert.Empty(t, bob.engine.Messages(other.ConversationID))
	assert.Len(t, bob.engine.Conversations(), 1)

	public := domain.Envelope{ID: "3", ConversationID: domaintypes.GlobalConversationID, SenderID: "alice", Ciphertext: "hi"}
	require.NoError(t, bob.engine.HandleEnvelope(ctx, public))
	require.NoError(t, bob.engine.HandleEnvelope(ctx, public))
	assert.Len(t, bob.engine.Messages(domaintypes.GlobalConversationID), 1)
	assert.Equal(t, 1, bob.engine.UnreadCount(domaintypes.GlobalConversationID))
}

func TestSendMessage_TransportFailure(t *testing.T) {
	ctx := context.Background()
	alice := newPeer(t, memory.New(), "alice", func(o *message.Options) {
		o.Primary = brokenTransport{configured: true}
	})

	echo, err := alice.engine.SendMessage(ctx, domaintypes.GlobalConversationID, "lost?")
	require.Error(t, err)
	assert.ErrorIs(t, err, domaintypes.ErrTransport)
	var te *domaintypes.TransportError
	assert.ErrorAs(t, err, &te)

	require.Len(t, alice.notes.C, 1)
	assert.Equal(t, domaintypes.SeverityError, (<-alice.notes.C).Severity)

	msgs := alice.engine.Messages(domaintypes.GlobalConversationID)
	require.Len(t, msgs, 1)
	assert.Equal(t, echo.ID, msgs[0].ID)
}

func TestOpenConversation_RemoteUnavailable(t *testing.T) {
	ctx := context.Background()
	alice := newPeer(t, memory.New(), "alice", func(o *message.Options) {
		o.Primary = brokenTransport{configured: true}
	})
	cached := domain.MessageRecord{ID: "42", ConversationID: domaintypes.GlobalConversationID, SenderID: "bob", SenderLabel: "bob", Text: "from before"}
	require.NoError(t, alice.cache.Put(ctx, domaintypes.GlobalConversationID, cached))

	res, err := alice.engine.OpenConversation(ctx, domaintypes.GlobalConversationID)
	require.NoError(t, err)
	assert.True(t, res.RemoteUnavailable)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "from before", res.Records[0].Text)
}

func TestNoTransport_LocalOnly(t *testing.T) {
	ctx := context.Background()
	alice := newPeer(t, memory.New(), "alice", func(o *message.Options) {
		o.Primary = brokenTransport{configured: false}
	})
	assert.False(t, alice.engine.TransportAvailable())

	_, err := alice.engine.SendMessage(ctx, domaintypes.GlobalConversationID, "note to self")
	require.NoError(t, err)
	assert.Empty(t, alice.notes.C)

	res, err := alice.engine.OpenConversation(ctx, domaintypes.GlobalConversationID)
	require.NoError(t, err)
	assert.True(t, res.RemoteUnavailable)
	assert.Len(t, res.Records, 1)
}

func TestFallbackTransport(t *testing.T) {
	ctx := context.Background()
	fallback := memory.New()
	alice := newPeer(t, fallback, "alice", func(o *message.Options) {
		o.Primary = brokenTransport{configured: false}
		o.Fallback = fallback
	})
	assert.False(t, alice.engine.TransportAvailable())

	_, err := alice.engine.SendMessage(ctx, domaintypes.GlobalConversationID, "via fallback")
	require.NoError(t, err)
	wire, err := fallback.History(ctx, domaintypes.GlobalConversationID)
	require.NoError(t, err)
	assert.Len(t, wire, 1)
}

func TestOpenConversation_SkipsUndecryptable(t *testing.T) {
	ctx := context.Background()
	relay := memory.New()
	alice := newPeer(t, relay, "alice", nil)
	bob := newPeer(t, relay, "bob", nil)
	dm := domaintypes.DirectConversationID("alice", "bob")

	key, err := alice.keys.SharedKey(ctx, "bob")
	require.NoError(t, err)
	good, err := aead.Encrypt(key, "readable")
	require.NoError(t, err)
	require.NoError(t, relay.Append(ctx, dm, domain.Envelope{ID: "100", SenderID: "alice", Ciphertext: good.Ciphertext, Nonce: good.Nonce, CreatedAt: 100}))
	require.NoError(t, relay.Append(ctx, dm, domain.Envelope{ID: "101", SenderID: "alice", Ciphertext: "Z2FyYmFnZQ==", Nonce: good.Nonce, CreatedAt: 101}))

	res, err := bob.engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	assert.Equal(t, []string{"101"}, res.Undecryptable)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "readable", res.Records[0].Text)
}

func TestOpenConversation_PeerPublishesLater(t *testing.T) {
	ctx := context.Background()
	relay := memory.New()
	alice := newPeer(t, relay, "alice", nil)
	dm := domaintypes.DirectConversationID("alice", "carol")

	// carol has no directory, so her key is never published by login.
	carol, err := session.New(store.NewIdentityFileStore(t.TempDir()), nil, nil).Login(ctx, "carol", "")
	require.NoError(t, err)
	carolKeys, err := peerkey.New(carol, relay, 0)
	require.NoError(t, err)
	key, err := carolKeys.SharedKey(ctx, "alice")
	require.NoError(t, err)
	sealed, err := aead.Encrypt(key, "can you read this yet?")
	require.NoError(t, err)
	require.NoError(t, relay.Append(ctx, dm, domain.Envelope{ID: "200", SenderID: "carol", Ciphertext: sealed.Ciphertext, Nonce: sealed.Nonce, CreatedAt: 200}))

	res, err := alice.engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	assert.Equal(t, []string{"200"}, res.Undecryptable)
	assert.Zero(t, res.Added)
	assert.Empty(t, res.Records)
	cached, err := alice.cache.Get(ctx, dm)
	require.NoError(t, err)
	assert.Empty(t, cached)

	require.NoError(t, relay.Publish(ctx, "carol", carol.PublicKey))

	res, err = alice.engine.OpenConversation(ctx, dm)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Empty(t, res.Undecryptable)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "can you read this yet?", res.Records[0].Text)
}

func TestOpenConversation_NumericOrder(t *testing.T) {
	ctx := context.Background()
	relay := memory.New()
	bob := newPeer(t, relay, "bob", nil)
	g := domaintypes.GlobalConversationID

	require.NoError(t, relay.Append(ctx, g, domain.Envelope{ID: "10", SenderID: "alice", Ciphertext: "second", CreatedAt: 5}))
	require.NoError(t, relay.Append(ctx, g, domain.Envelope{ID: "9", SenderID: "alice", Ciphertext: "first", CreatedAt: 5}))

	res, err := bob.engine.OpenConversation(ctx, g)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "9", res.Records[0].ID)
	assert.Equal(t, "10", res.Records[1].ID)
}

func TestSendMessage_Rejects(t *testing.T) {
	ctx := context.Background()
	alice := newPeer(t, memory.New(), "alice", nil)

	_, err := alice.engine.SendMessage(ctx, domaintypes.GlobalConversationID, "   ")
	assert.ErrorIs(t, err, message.ErrEmptyMessage)

	_, err = alice.engine.SendMessage(ctx, domaintypes.NewGroupConversationID(), "hi all")
	assert.ErrorIs(t, err, domaintypes.ErrUnsupportedConversation)

	_, err = alice.engine.SendMessage(ctx, domaintypes.DirectConversationID("bob", "carol"), "not mine")
	assert.ErrorIs(t, err, domaintypes.ErrUnsupportedConversation)
}

func TestConversations_Persisted(t *testing.T) {
	dir := t.TempDir()
	relay := memory.New()
	alice := newPeer(t, relay, "alice", func(o *message.Options) {
		o.Conversations = store.NewConversationFileStore(dir)
	})
	dm := alice.engine.StartConversation("bob")
	assert.Equal(t, domaintypes.DirectConversationID("alice", "bob"), dm)

	again := newPeer(t, relay, "alice", func(o *message.Options) {
		o.Conversations = store.NewConversationFileStore(dir)
	})
	require.NoError(t, again.engine.LoadConversations())
	ids := make([]domain.ConversationID, 0)
	for _, c := range again.engine.Conversations() {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, dm)
}
