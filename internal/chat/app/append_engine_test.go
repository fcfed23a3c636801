package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"portfolio_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestEngine(repo *MockConversationRepository, storage *MockAttachmentStorage, events *MockEventPublisher) *AppendEngine {
	e := NewAppendEngine(repo, storage, events)
	e.now = fixedClock
	e.newID = func() string { return "m1" }
	return e
}

func TestAppendEngine_Submit_Success(t *testing.T) {
	repo := new(MockConversationRepository)
	events := new(MockEventPublisher)
	e := newTestEngine(repo, nil, events)

	surface := &RecordingSurface{}
	view := NewConversationView(visitor, "guest@example.com", surface, time.Minute, fixedClock)

	visibleBeforeWrite := false
	repo.On("AppendMessage", mock.Anything,
		domain.ConversationHeader{ID: "guest@example.com", SenderName: "Guest", SenderEmail: "guest@example.com"},
		mock.MatchedBy(func(m domain.Message) bool {
			return m.ID == "m1" && m.Text == "hello" && !m.SentAt.IsCommitted() && m.SentBy == domain.RoleVisitor
		})).Return(nil).Once()
	events.On("PublishMessageEvent", mock.Anything, mock.MatchedBy(func(evt domain.MessageEvent) bool {
		return evt.MessageID == "m1" && evt.HasText && !evt.HasImage
	})).Return(errors.New("broker down")).Once()

	id, err := e.Submit(context.Background(), view, visitor, domain.Draft{Text: "  hello  "}, func() {
		visibleBeforeWrite = view.IsPending("m1")
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", id)
	assert.True(t, visibleBeforeWrite)
	// 事件失敗不影響結果
	assert.Empty(t, surface.NotificationsCopy())

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestAppendEngine_Submit_RollbackNotifiesOnce(t *testing.T) {
	repo := new(MockConversationRepository)
	events := new(MockEventPublisher)
	e := newTestEngine(repo, nil, events)

	surface := &RecordingSurface{}
	view := NewConversationView(admin, "guest@example.com", surface, time.Minute, fixedClock)

	repo.On("AppendMessage", mock.Anything,
		domain.ConversationHeader{ID: "guest@example.com", SenderEmail: "guest@example.com"},
		mock.Anything).Return(errors.New("write refused")).Once()

	_, err := e.Submit(context.Background(), view, admin, domain.Draft{Text: "reply"}, nil)
	require.Error(t, err)

	// 先顯示再移除
	rendered := surface.Rendered()
	require.GreaterOrEqual(t, len(rendered), 2)
	assert.Equal(t, []string{"m1"}, rendered[0].PendingIDs)
	assert.Empty(t, surface.Last().Messages)
	assert.False(t, view.IsPending("m1"))

	notes := surface.NotificationsCopy()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.TitleReplyFailed, notes[0].Title)
	assert.Equal(t, domain.NotificationDestructive, notes[0].Variant)

	events.AssertNotCalled(t, "PublishMessageEvent", mock.Anything, mock.Anything)
}

func TestAppendEngine_Submit_Empty(t *testing.T) {
	repo := new(MockConversationRepository)
	e := newTestEngine(repo, nil, new(MockEventPublisher))
	surface := &RecordingSurface{}
	view := NewConversationView(visitor, "guest@example.com", surface, time.Minute, fixedClock)

	_, err := e.Submit(context.Background(), view, visitor, domain.Draft{Text: "   "}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptySubmission)
	assert.Empty(t, surface.Rendered())
	repo.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestAppendEngine_Submit_WithImage(t *testing.T) {
	repo := new(MockConversationRepository)
	storage := new(MockAttachmentStorage)
	events := new(MockEventPublisher)
	e := newTestEngine(repo, storage, events)
	view := NewConversationView(visitor, "guest@example.com", nil, time.Minute, fixedClock)

	path := AttachmentPath("guest@example.com", t0, "cat.png")
	storage.On("Upload", mock.Anything, path, []byte("png"), "image/png").Return(nil).Once()
	storage.On("PublicURL", mock.Anything, path).Return("https://cdn.example.com/"+path, nil).Once()
	repo.On("AppendMessage", mock.Anything, mock.Anything, mock.MatchedBy(func(m domain.Message) bool {
		return m.Text == "" && m.ImageURL == "https://cdn.example.com/"+path
	})).Return(nil).Once()
	events.On("PublishMessageEvent", mock.Anything, mock.MatchedBy(func(evt domain.MessageEvent) bool {
		return evt.HasImage && !evt.HasText
	})).Return(nil).Once()

	_, err := e.Submit(context.Background(), view, visitor, domain.Draft{
		Attachment: &domain.Attachment{Name: "../cat.png", ContentType: "image/png", Data: []byte("png")},
	}, nil)
	require.NoError(t, err)

	storage.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestAppendEngine_Submit_UploadFailure(t *testing.T) {
	repo := new(MockConversationRepository)
	storage := new(MockAttachmentStorage)
	e := newTestEngine(repo, storage, new(MockEventPublisher))
	surface := &RecordingSurface{}
	view := NewConversationView(visitor, "guest@example.com", surface, time.Minute, fixedClock)

	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/png").Return(errors.New("bucket gone")).Once()

	_, err := e.Submit(context.Background(), view, visitor, domain.Draft{
		Text:       "look at this",
		Attachment: &domain.Attachment{Name: "cat.png", ContentType: "image/png", Data: []byte("png")},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrUploadFailed)

	// 沒有任何訊息被顯示或寫入
	assert.Empty(t, surface.Rendered())
	repo.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)

	notes := surface.NotificationsCopy()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.TitleUploadFailed, notes[0].Title)
}

func TestAppendEngine_Submit_RejectsNonImage(t *testing.T) {
	storage := new(MockAttachmentStorage)
	e := newTestEngine(new(MockConversationRepository), storage, new(MockEventPublisher))
	view := NewConversationView(visitor, "guest@example.com", nil, time.Minute, fixedClock)

	_, err := e.Submit(context.Background(), view, visitor, domain.Draft{
		Attachment: &domain.Attachment{Name: "notes.pdf", ContentType: "application/pdf"},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachmentPath(t *testing.T) {
	assert.Equal(t,
		"attachments/guest@example.com/1740830400000_cat.png",
		AttachmentPath("guest@example.com", t0, "/tmp/cat.png"))
}
