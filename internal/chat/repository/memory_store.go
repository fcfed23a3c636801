package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio_chat_service/internal/chat/domain"
)

// MemoryStore in-process conversation store and feed, used when no mongo is configured
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	subs          map[string]map[int]SnapshotHandler
	inboxSubs     map[int]func(string)
	nextSub       int
	now           func() time.Time
}

// NewMemoryStore create an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*domain.Conversation),
		subs:          make(map[string]map[int]SnapshotHandler),
		inboxSubs:     make(map[int]func(string)),
		now:           time.Now,
	}
}

// SetClock replace the store clock
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FindByID implements ConversationReader
func (s *MemoryStore) FindByID(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return cloneConversation(c), nil
}

// ListByLastMessage implements ConversationRepository
func (s *MemoryStore) ListByLastMessage(_ context.Context, limit int64) ([]*domain.Conversation, error) {
	s.mu.Lock()
	out := make([]*domain.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, cloneConversation(c))
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AppendMessage implements ConversationRepository
func (s *MemoryStore) AppendMessage(_ context.Context, header domain.ConversationHeader, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[header.ID]
	if !ok {
		c = &domain.Conversation{
			ID:          header.ID,
			SenderName:  header.SenderName,
			SenderEmail: header.SenderEmail,
			Typing:      map[string]bool{},
			Presence:    map[string]domain.PresenceEntry{},
		}
		s.conversations[header.ID] = c
	}
	if c.FindMessage(msg.ID) >= 0 {
		return nil
	}

	now := s.now()
	local := now
	if msg.SentAt != nil && !msg.SentAt.Local.IsZero() {
		local = msg.SentAt.Local
	}
	msg.SentAt = domain.CommittedAt(local, now)
	msg.ReadBy = []domain.ReadReceipt{}
	msg.Reactions = []domain.Reaction{}

	c.Messages = append(c.Messages, msg)
	c.LastMessageAt = &now
	c.Revision++
	return nil
}

// MarkRead implements ConversationRepository
func (s *MemoryStore) MarkRead(_ context.Context, id, participantID string, messageIDs []string, at time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	want := make(map[string]struct{}, len(messageIDs))
	for _, mid := range messageIDs {
		want[mid] = struct{}{}
	}
	for i := range c.Messages {
		m := &c.Messages[i]
		if _, ok := want[m.ID]; ok && !m.IsReadBy(participantID) {
			m.ReadBy = append(m.ReadBy, domain.ReadReceipt{ParticipantID: participantID, At: at})
		}
	}
	c.Revision++
	return nil
}

// SetReactions implements ConversationRepository
func (s *MemoryStore) SetReactions(_ context.Context, id string, revision int64, messageID string, reactions []domain.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok || c.Revision != revision {
		return domain.ErrRevisionConflict
	}
	i := c.FindMessage(messageID)
	if i < 0 {
		return domain.ErrRevisionConflict
	}
	c.Messages[i].Reactions = append([]domain.Reaction{}, reactions...)
	c.Revision++
	return nil
}

// SetTyping implements ConversationRepository
func (s *MemoryStore) SetTyping(_ context.Context, id, participantID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	if c.Typing == nil {
		c.Typing = map[string]bool{}
	}
	c.Typing[participantID] = active
	c.Revision++
	return nil
}

// SetPresence implements ConversationRepository
func (s *MemoryStore) SetPresence(_ context.Context, id, participantID string, entry domain.PresenceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	if c.Presence == nil {
		c.Presence = map[string]domain.PresenceEntry{}
	}
	c.Presence[participantID] = entry
	c.Revision++
	return nil
}

// PublishSnapshot implements SnapshotPublisher, handlers run on the caller goroutine
func (s *MemoryStore) PublishSnapshot(_ context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	handlers := make([]SnapshotHandler, 0, len(s.subs[conv.ID]))
	for _, h := range s.subs[conv.ID] {
		handlers = append(handlers, h)
	}
	inbox := make([]func(string), 0, len(s.inboxSubs))
	for _, h := range s.inboxSubs {
		inbox = append(inbox, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(cloneConversation(conv))
	}
	for _, h := range inbox {
		h(conv.ID)
	}
	return nil
}

// Subscribe implements ConversationFeed
func (s *MemoryStore) Subscribe(_ context.Context, conversationID string, handler SnapshotHandler) (func(), error) {
	s.mu.Lock()
	s.nextSub++
	subID := s.nextSub
	if s.subs[conversationID] == nil {
		s.subs[conversationID] = make(map[int]SnapshotHandler)
	}
	s.subs[conversationID][subID] = handler

	initial := &domain.Conversation{ID: conversationID}
	if c, ok := s.conversations[conversationID]; ok {
		initial = cloneConversation(c)
	}
	s.mu.Unlock()

	handler(initial)

	return s.unsubscriber(func() {
		delete(s.subs[conversationID], subID)
	}), nil
}

// SubscribeInbox implements ConversationFeed
func (s *MemoryStore) SubscribeInbox(_ context.Context, handler func(conversationID string)) (func(), error) {
	s.mu.Lock()
	s.nextSub++
	subID := s.nextSub
	s.inboxSubs[subID] = handler
	s.mu.Unlock()

	return s.unsubscriber(func() {
		delete(s.inboxSubs, subID)
	}), nil
}

func (s *MemoryStore) unsubscriber(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			remove()
		})
	}
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	out := *c
	if c.LastMessageAt != nil {
		t := *c.LastMessageAt
		out.LastMessageAt = &t
	}
	out.Messages = make([]domain.Message, len(c.Messages))
	for i, m := range c.Messages {
		m.ReadBy = append([]domain.ReadReceipt{}, m.ReadBy...)
		m.Reactions = append([]domain.Reaction{}, m.Reactions...)
		if m.SentAt != nil {
			sa := *m.SentAt
			m.SentAt = &sa
		}
		out.Messages[i] = m
	}
	if c.Typing != nil {
		out.Typing = make(map[string]bool, len(c.Typing))
		for k, v := range c.Typing {
			out.Typing[k] = v
		}
	}
	if c.Presence != nil {
		out.Presence = make(map[string]domain.PresenceEntry, len(c.Presence))
		for k, v := range c.Presence {
			out.Presence[k] = v
		}
	}
	return &out
}
