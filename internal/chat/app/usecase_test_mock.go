package app

import (
	"context"
	"sync"
	"time"

	"portfolio_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// FindByID mock find conversation
func (m *MockConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByLastMessage mock list conversations
func (m *MockConversationRepository) ListByLastMessage(ctx context.Context, limit int64) ([]*domain.Conversation, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// AppendMessage mock append
func (m *MockConversationRepository) AppendMessage(ctx context.Context, header domain.ConversationHeader, msg domain.Message) error {
	args := m.Called(ctx, header, msg)
	return args.Error(0)
}

// MarkRead mock mark read
func (m *MockConversationRepository) MarkRead(ctx context.Context, id, participantID string, messageIDs []string, at time.Time) error {
	args := m.Called(ctx, id, participantID, messageIDs, at)
	return args.Error(0)
}

// SetReactions mock reactions CAS
func (m *MockConversationRepository) SetReactions(ctx context.Context, id string, revision int64, messageID string, reactions []domain.Reaction) error {
	args := m.Called(ctx, id, revision, messageID, reactions)
	return args.Error(0)
}

// SetTyping mock typing flag
func (m *MockConversationRepository) SetTyping(ctx context.Context, id, participantID string, active bool) error {
	args := m.Called(ctx, id, participantID, active)
	return args.Error(0)
}

// SetPresence mock presence entry
func (m *MockConversationRepository) SetPresence(ctx context.Context, id, participantID string, entry domain.PresenceEntry) error {
	args := m.Called(ctx, id, participantID, entry)
	return args.Error(0)
}

// MockAttachmentStorage Mock AttachmentStorage
type MockAttachmentStorage struct {
	mock.Mock
}

// Upload mock upload
func (m *MockAttachmentStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	args := m.Called(ctx, path, data, contentType)
	return args.Error(0)
}

// PublicURL mock public url
func (m *MockAttachmentStorage) PublicURL(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// MockEventPublisher Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// PublishMessageEvent mock publish
func (m *MockEventPublisher) PublishMessageEvent(ctx context.Context, evt domain.MessageEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// RecordingSurface Surface that keeps every render and notification
type RecordingSurface struct {
	mu            sync.Mutex
	States        []domain.ViewState
	Notifications []domain.Notification
}

// Render implements Renderer
func (s *RecordingSurface) Render(state domain.ViewState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.States = append(s.States, state)
}

// Notify implements Notifier
func (s *RecordingSurface) Notify(n domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Notifications = append(s.Notifications, n)
}

// Last latest rendered state
func (s *RecordingSurface) Last() domain.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.States) == 0 {
		return domain.ViewState{}
	}
	return s.States[len(s.States)-1]
}

// NotificationsCopy notifications received so far
func (s *RecordingSurface) NotificationsCopy() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.Notifications...)
}

// Rendered every state rendered so far
func (s *RecordingSurface) Rendered() []domain.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ViewState(nil), s.States...)
}
