package message

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
	"cyphertext/internal/metrics"
	"cyphertext/internal/protocol/aead"
	"cyphertext/internal/util/memzero"
)

// DefaultTimeout bounds each transport call when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// ErrEmptyMessage is returned when asked to send blank text.
var ErrEmptyMessage = errors.New("message text is empty")

// Options wires a Service. Primary, Fallback, Conversations and Notifier
// are optional.
type Options struct {
	Self          domain.ParticipantID
	Keys          domain.KeyResolver
	Primary       domain.Transport
	Fallback      domain.Transport
	Cache         domain.LocalCache
	Conversations domain.ConversationStore
	Notifier      domain.Notifier
	Logger        log.Logger
	Timeout       time.Duration
}

// Service is the sync engine for one logged-in participant. All methods
// are safe for concurrent use.
type Service struct {
	self      domain.ParticipantID
	keys      domain.KeyResolver
	primary   domain.Transport
	fallback  domain.Transport
	cache     domain.LocalCache
	convStore domain.ConversationStore
	notifier  domain.Notifier
	logger    log.Logger
	timeout   time.Duration
	ids       *idGenerator
	now       func() time.Time

	mu         sync.Mutex
	views      map[domain.ConversationID]map[string]domain.MessageRecord
	loaded     map[domain.ConversationID]bool
	convs      map[domain.ConversationID]*domain.Conversation
	foreground domain.ConversationID
	unsubs     []func()
}

// New constructs the engine. The global channel is always listed.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	s := &Service{
		self:      opts.Self,
		keys:      opts.Keys,
		primary:   opts.Primary,
		fallback:  opts.Fallback,
		cache:     opts.Cache,
		convStore: opts.Conversations,
		notifier:  opts.Notifier,
		logger:    log.With(opts.Logger, "participant", opts.Self),
		timeout:   opts.Timeout,
		ids:       newIDGenerator(),
		now:       time.Now,
		views:     make(map[domain.ConversationID]map[string]domain.MessageRecord),
		loaded:    make(map[domain.ConversationID]bool),
		convs:     make(map[domain.ConversationID]*domain.Conversation),
	}
	s.ensureConversation(domaintypes.GlobalConversationID)
	return s
}

// TransportAvailable reports whether the primary transport is usable.
func (s *Service) TransportAvailable() bool {
	return s.primary != nil && configured(s.primary)
}

func (s *Service) activeTransport() domain.Transport {
	switch {
	case s.TransportAvailable():
		return s.primary
	case s.fallback != nil && configured(s.fallback):
		return s.fallback
	default:
		return nil
	}
}

// OpenConversation makes conversationID the foreground conversation and
// brings its records up to date with the remote log.
func (s *Service) OpenConversation(ctx context.Context, conversationID domain.ConversationID) (domain.SyncResult, error) {
	defer metrics.ObserveSince(metrics.SyncLatency, time.Now())

	if conversationID == "" {
		return domain.SyncResult{}, fmt.Errorf("open conversation: %w", domaintypes.ErrUnsupportedConversation)
	}
	s.SetForeground(conversationID)

	cached, err := s.cache.Get(ctx, conversationID)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("load cache: %w", err)
	}
	known := make(map[string]struct{}, len(cached))
	for _, r := range cached {
		known[r.ID] = struct{}{}
	}
	s.mergeView(conversationID, cached...)

	var res domain.SyncResult
	tr := s.activeTransport()
	if tr == nil {
		res.RemoteUnavailable = true
		res.Records = s.Messages(conversationID)
		return res, nil
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	envelopes, err := tr.History(tctx, conversationID)
	cancel()
	if err != nil {
		level.Warn(s.logger).Log("msg", "remote history unavailable", "conversation", conversationID, "err", err)
		res.RemoteUnavailable = true
		res.Records = s.Messages(conversationID)
		return res, nil
	}

	fresh := make([]domain.Envelope, 0, len(envelopes))
	for _, env := range envelopes {
		if _, ok := known[env.ID]; ok {
			continue
		}
		known[env.ID] = struct{}{}
		fresh = append(fresh, env)
	}

	records, undecryptable := s.decryptAll(ctx, conversationID, fresh, "bulk")
	sort.Slice(records, func(i, j int) bool { return lessID(records[i].ID, records[j].ID) })
	for _, r := range records {
		if err := s.cache.Put(ctx, conversationID, r); err != nil {
			return domain.SyncResult{}, fmt.Errorf("store record %s: %w", r.ID, err)
		}
	}
	s.mergeView(conversationID, records...)
	s.persistConversation(conversationID)

	res.Added = len(records)
	res.Undecryptable = undecryptable
	res.Records = s.Messages(conversationID)
	level.Debug(s.logger).Log("msg", "conversation synced", "conversation", conversationID, "added", res.Added, "undecryptable", len(undecryptable))
	return res, nil
}

// HandleEnvelope applies one live envelope. Own envelopes, duplicates and
// direct conversations the participant is not part of are ignored.
func (s *Service) HandleEnvelope(ctx context.Context, envelope domain.Envelope) error {
	conversationID := envelope.ConversationID
	if envelope.SenderID == s.self || conversationID == "" {
		return nil
	}
	if domaintypes.KindOf(conversationID) == domaintypes.KindDirect {
		if _, ok := domaintypes.Counterpart(conversationID, s.self); !ok {
			return nil
		}
	}
	if err := s.ensureLoaded(ctx, conversationID); err != nil {
		return err
	}
	if s.hasRecord(conversationID, envelope.ID) {
		return nil
	}

	records, _ := s.decryptAll(ctx, conversationID, []domain.Envelope{envelope}, "live")
	if len(records) == 0 {
		return nil
	}
	rec := records[0]
	if err := s.cache.Put(ctx, conversationID, rec); err != nil {
		return fmt.Errorf("store record %s: %w", rec.ID, err)
	}

	discovered := s.ensureConversation(conversationID)
	if !s.mergeView(conversationID, rec) {
		return nil
	}
	s.mu.Lock()
	if s.foreground != conversationID {
		s.convs[conversationID].UnreadCount++
	}
	s.mu.Unlock()
	s.persistConversation(conversationID)

	if discovered {
		s.notify(domaintypes.SeverityInfo, "New chat", "New message from "+rec.SenderLabel, conversationID)
	}
	return nil
}

// SendMessage echoes text locally and then delivers it. The returned
// record is the local echo; it is kept even when delivery fails.
func (s *Service) SendMessage(ctx context.Context, conversationID domain.ConversationID, text string) (domain.MessageRecord, error) {
	if strings.TrimSpace(text) == "" {
		return domain.MessageRecord{}, ErrEmptyMessage
	}
	kind := domaintypes.KindOf(conversationID)
	var peer domain.ParticipantID
	switch kind {
	case domaintypes.KindGroup:
		return domain.MessageRecord{}, fmt.Errorf("%s: %w", conversationID, domaintypes.ErrUnsupportedConversation)
	case domaintypes.KindDirect:
		p, ok := domaintypes.Counterpart(conversationID, s.self)
		if !ok {
			return domain.MessageRecord{}, fmt.Errorf("%s: %w", conversationID, domaintypes.ErrUnsupportedConversation)
		}
		peer = p
	}

	s.ensureConversation(conversationID)
	rec := domain.MessageRecord{
		ID:              s.ids.Next(),
		ConversationID:  conversationID,
		SenderID:        s.self,
		SenderLabel:     domaintypes.LocalSenderLabel,
		Text:            text,
		SentByLocalUser: true,
		Timestamp:       s.now().UnixMilli(),
	}
	s.mergeView(conversationID, rec)
	if err := s.cache.Put(ctx, conversationID, rec); err != nil {
		level.Warn(s.logger).Log("msg", "cache local echo", "conversation", conversationID, "err", err)
	}
	s.persistConversation(conversationID)

	tr := s.activeTransport()
	if tr == nil {
		metrics.MessagesSentTotal.WithLabelValues("local").Inc()
		return rec, nil
	}

	env := domain.Envelope{
		ID:             rec.ID,
		ConversationID: conversationID,
		SenderID:       s.self,
		CreatedAt:      rec.Timestamp,
	}
	if kind == domaintypes.KindGlobal {
		env.Ciphertext = text
	} else {
		key, err := s.resolveKey(ctx, peer)
		if err != nil {
			metrics.MessagesSentTotal.WithLabelValues("no_key").Inc()
			s.notify(domaintypes.SeverityError, "Message not sent", keyFailure(peer, err), conversationID)
			return rec, err
		}
		sealed, err := aead.Encrypt(key, text)
		memzero.Key((*[32]byte)(&key))
		if err != nil {
			metrics.MessagesSentTotal.WithLabelValues("failed").Inc()
			return rec, err
		}
		env.Ciphertext, env.Nonce = sealed.Ciphertext, sealed.Nonce
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	err := tr.Append(tctx, conversationID, env)
	cancel()
	if err != nil {
		metrics.MessagesSentTotal.WithLabelValues("failed").Inc()
		terr := asTransportError("append", err)
		level.Error(s.logger).Log("msg", "deliver message", "conversation", conversationID, "id", rec.ID, "err", terr)
		s.notify(domaintypes.SeverityError, "Message not sent", "Could not reach the relay; the message is kept locally.", conversationID)
		return rec, terr
	}
	metrics.MessagesSentTotal.WithLabelValues("sent").Inc()
	return rec, nil
}

// Start subscribes to live envelopes on the active transport.
func (s *Service) Start(ctx context.Context) error {
	tr := s.activeTransport()
	if tr == nil {
		return nil
	}
	unsub, err := tr.Subscribe(ctx, func(env domain.Envelope) {
		if err := s.HandleEnvelope(ctx, env); err != nil {
			level.Error(s.logger).Log("msg", "handle envelope", "id", env.ID, "err", err)
		}
	})
	if err != nil {
		return asTransportError("subscribe", err)
	}
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsub)
	s.mu.Unlock()
	return nil
}

// Stop ends every subscription opened by Start.
func (s *Service) Stop() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}

// StartConversation lists the direct conversation with peer and returns its id.
func (s *Service) StartConversation(peer domain.ParticipantID) domain.ConversationID {
	id := domaintypes.DirectConversationID(s.self, peer)
	if s.ensureConversation(id) {
		s.persistConversation(id)
	}
	return id
}

// LoadConversations restores the persisted conversation list.
func (s *Service) LoadConversations() error {
	if s.convStore == nil {
		return nil
	}
	list, err := s.convStore.ListConversations()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range list {
		c := c
		s.convs[c.ID] = &c
	}
	return nil
}

// Messages returns the in-memory records of a conversation in id order.
func (s *Service) Messages(conversationID domain.ConversationID) []domain.MessageRecord {
	s.mu.Lock()
	view := s.views[conversationID]
	out := make([]domain.MessageRecord, 0, len(view))
	for _, r := range view {
		out = append(out, r)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// Conversations returns the conversation list ordered by id.
func (s *Service) Conversations() []domain.Conversation {
	s.mu.Lock()
	out := make([]domain.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, *c)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnreadCount returns the unread counter of a conversation.
func (s *Service) UnreadCount(conversationID domain.ConversationID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[conversationID]; ok {
		return c.UnreadCount
	}
	return 0
}

// SetForeground marks conversationID as the one being viewed and clears
// its unread counter.
func (s *Service) SetForeground(conversationID domain.ConversationID) {
	s.ensureConversation(conversationID)
	s.mu.Lock()
	s.foreground = conversationID
	c := s.convs[conversationID]
	reset := c.UnreadCount != 0
	c.UnreadCount = 0
	s.mu.Unlock()
	if reset {
		s.persistConversation(conversationID)
	}
}

// decryptAll turns envelopes into records. Envelopes that cannot be read
// are returned by id and skipped.
func (s *Service) decryptAll(ctx context.Context, conversationID domain.ConversationID, envelopes []domain.Envelope, path string) ([]domain.MessageRecord, []string) {
	if len(envelopes) == 0 {
		return nil, nil
	}
	kind := domaintypes.KindOf(conversationID)

	var (
		key    domain.SymmetricKey
		keyErr error
	)
	switch kind {
	case domaintypes.KindGroup:
		keyErr = domaintypes.ErrUnsupportedConversation
	case domaintypes.KindDirect:
		if peer, ok := domaintypes.Counterpart(conversationID, s.self); ok {
			key, keyErr = s.resolveKey(ctx, peer)
		} else {
			keyErr = domaintypes.ErrUnsupportedConversation
		}
	}
	if keyErr != nil {
		level.Warn(s.logger).Log("msg", "conversation undecryptable", "conversation", conversationID, "envelopes", len(envelopes), "err", keyErr)
		metrics.EnvelopesUndecryptableTotal.WithLabelValues(path).Add(float64(len(envelopes)))
		return nil, envelopeIDs(envelopes)
	}

	defer memzero.Key((*[32]byte)(&key))

	opened := make([]*domain.MessageRecord, len(envelopes))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, env := range envelopes {
		i, env := i, env
		g.Go(func() error {
			text := env.Ciphertext
			if kind != domaintypes.KindGlobal {
				var err error
				if text, err = aead.Decrypt(key, env.Ciphertext, env.Nonce); err != nil {
					level.Debug(s.logger).Log("msg", "skip envelope", "id", env.ID, "err", err)
					return nil
				}
			}
			rec := s.toRecord(env, text)
			opened[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	var (
		records       []domain.MessageRecord
		undecryptable []string
	)
	for i, rec := range opened {
		if rec == nil {
			undecryptable = append(undecryptable, envelopes[i].ID)
			continue
		}
		records = append(records, *rec)
	}
	metrics.EnvelopesDecryptedTotal.WithLabelValues(path).Add(float64(len(records)))
	metrics.EnvelopesUndecryptableTotal.WithLabelValues(path).Add(float64(len(undecryptable)))
	return records, undecryptable
}

func (s *Service) toRecord(env domain.Envelope, text string) domain.MessageRecord {
	rec := domain.MessageRecord{
		ID:             env.ID,
		ConversationID: env.ConversationID,
		SenderID:       env.SenderID,
		SenderLabel:    domaintypes.ShortLabel(env.SenderID),
		Text:           text,
		Timestamp:      env.CreatedAt,
	}
	if env.SenderID == s.self {
		rec.SenderLabel = domaintypes.LocalSenderLabel
		rec.SentByLocalUser = true
	}
	return rec
}

func (s *Service) resolveKey(ctx context.Context, peer domain.ParticipantID) (domain.SymmetricKey, error) {
	if s.keys == nil {
		return domain.SymmetricKey{}, fmt.Errorf("%s: %w", peer, domaintypes.ErrNoPublishedKey)
	}
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.keys.SharedKey(tctx, peer)
}

// ensureLoaded seeds the view of a conversation from the cache once.
func (s *Service) ensureLoaded(ctx context.Context, conversationID domain.ConversationID) error {
	s.mu.Lock()
	done := s.loaded[conversationID]
	s.mu.Unlock()
	if done {
		return nil
	}
	cached, err := s.cache.Get(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}
	s.mergeView(conversationID, cached...)
	return nil
}

// mergeView upserts records into the in-memory view. It reports whether
// any id was new.
func (s *Service) mergeView(conversationID domain.ConversationID, records ...domain.MessageRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded[conversationID] = true
	view, ok := s.views[conversationID]
	if !ok {
		view = make(map[string]domain.MessageRecord)
		s.views[conversationID] = view
	}
	added := false
	for _, r := range records {
		if _, exists := view[r.ID]; !exists {
			added = true
		}
		view[r.ID] = r
	}
	return added
}

func (s *Service) hasRecord(conversationID domain.ConversationID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.views[conversationID][id]
	return ok
}

// ensureConversation lists conversationID and reports whether it was new.
func (s *Service) ensureConversation(conversationID domain.ConversationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conversationID]; ok {
		return false
	}
	c := domaintypes.NewConversation(conversationID, s.self)
	s.convs[conversationID] = &c
	return true
}

func (s *Service) persistConversation(conversationID domain.ConversationID) {
	if s.convStore == nil {
		return
	}
	s.mu.Lock()
	c, ok := s.convs[conversationID]
	var snapshot domain.Conversation
	if ok {
		snapshot = *c
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.convStore.SaveConversation(snapshot); err != nil {
		level.Warn(s.logger).Log("msg", "save conversation", "conversation", conversationID, "err", err)
	}
}

func (s *Service) notify(sev domaintypes.Severity, title, body string, conversationID domain.ConversationID) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(domain.Notification{Severity: sev, Title: title, Body: body, ConversationID: conversationID})
}

func keyFailure(peer domain.ParticipantID, err error) string {
	if errors.Is(err, domaintypes.ErrNoPublishedKey) {
		return fmt.Sprintf("%s has not published a key yet.", domaintypes.ShortLabel(peer))
	}
	return fmt.Sprintf("Could not fetch the key of %s.", domaintypes.ShortLabel(peer))
}

func asTransportError(op string, err error) error {
	var te *domaintypes.TransportError
	if errors.As(err, &te) {
		return err
	}
	return &domaintypes.TransportError{Op: op, Err: err}
}

func envelopeIDs(envelopes []domain.Envelope) []string {
	ids := make([]string, len(envelopes))
	for i, env := range envelopes {
		ids[i] = env.ID
	}
	return ids
}

func configured(v any) bool {
	if c, ok := v.(domain.Configurable); ok {
		return c.Configured()
	}
	return true
}

var _ domain.MessageService = (*Service)(nil)
