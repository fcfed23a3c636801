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

func TestReadReceiptTracker_SingleWriteThenIdle(t *testing.T) {
	repo := new(MockConversationRepository)
	tracker := NewReadReceiptTracker(repo)
	tracker.now = fixedClock

	view := NewConversationView(admin, "guest@example.com", nil, time.Minute, fixedClock)
	view.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 1,
		Messages: []domain.Message{
			committed("m1", domain.RoleVisitor, 0),
			committed("m2", domain.RoleAdmin, time.Second),
			committed("m3", domain.RoleVisitor, 2*time.Second),
		},
	})

	repo.On("MarkRead", mock.Anything, "guest@example.com", admin.ID, []string{"m1", "m3"}, t0).Return(nil).Once()

	n, err := tracker.Trigger(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// 第二次觸發不寫入
	n, err = tracker.Trigger(context.Background(), view)
	require.NoError(t, err)
	assert.Zero(t, n)

	repo.AssertNumberOfCalls(t, "MarkRead", 1)
	assert.True(t, view.State().Messages[0].IsReadBy(admin.ID))
}

func TestReadReceiptTracker_FailureKeepsUnread(t *testing.T) {
	repo := new(MockConversationRepository)
	tracker := NewReadReceiptTracker(repo)
	tracker.now = fixedClock

	view := NewConversationView(visitor, "guest@example.com", nil, time.Minute, fixedClock)
	view.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 1,
		Messages: []domain.Message{committed("a1", domain.RoleAdmin, 0)},
	})

	repo.On("MarkRead", mock.Anything, "guest@example.com", visitor.ID, []string{"a1"}, t0).Return(errors.New("timeout")).Once()
	repo.On("MarkRead", mock.Anything, "guest@example.com", visitor.ID, []string{"a1"}, t0).Return(nil).Once()

	_, err := tracker.Trigger(context.Background(), view)
	require.Error(t, err)
	assert.Equal(t, []string{"a1"}, view.Unread())

	n, err := tracker.Trigger(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	repo.AssertExpectations(t)
}

func TestReadReceiptTracker_NothingUnread(t *testing.T) {
	repo := new(MockConversationRepository)
	tracker := NewReadReceiptTracker(repo)
	view := NewConversationView(visitor, "guest@example.com", nil, time.Minute, fixedClock)

	n, err := tracker.Trigger(context.Background(), view)
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
