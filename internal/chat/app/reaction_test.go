package app

import (
	"context"
	"errors"
	"testing"

	"portfolio_chat_service/internal/chat/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestToggle(repo *MockConversationRepository, retries uint64) *ReactionToggle {
	r := NewReactionToggle(repo, retries)
	r.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return r
}

func conversationAt(revision int64, reactions ...domain.Reaction) *domain.Conversation {
	m := committed("m1", domain.RoleVisitor, 0)
	m.Reactions = reactions
	return &domain.Conversation{ID: "guest@example.com", Revision: revision, Messages: []domain.Message{m}}
}

func TestReactionToggle_RetriesOnConflict(t *testing.T) {
	repo := new(MockConversationRepository)
	r := newTestToggle(repo, 3)

	other := domain.Reaction{ParticipantID: visitor.ID, Emoji: "🎉"}
	repo.On("FindByID", mock.Anything, "guest@example.com").Return(conversationAt(1), nil).Once()
	repo.On("FindByID", mock.Anything, "guest@example.com").Return(conversationAt(2, other), nil).Once()

	repo.On("SetReactions", mock.Anything, "guest@example.com", int64(1), "m1", mock.Anything).
		Return(domain.ErrRevisionConflict).Once()
	// 重新讀取後保留對方的 reaction
	repo.On("SetReactions", mock.Anything, "guest@example.com", int64(2), "m1",
		[]domain.Reaction{other, {ParticipantID: admin.ID, Emoji: "👍"}}).Return(nil).Once()

	require.NoError(t, r.Toggle(context.Background(), "guest@example.com", "m1", admin.ID, "👍"))
	repo.AssertExpectations(t)
}

func TestReactionToggle_GivesUpAfterRetries(t *testing.T) {
	repo := new(MockConversationRepository)
	r := newTestToggle(repo, 2)

	repo.On("FindByID", mock.Anything, mock.Anything).Return(conversationAt(1), nil)
	repo.On("SetReactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ErrRevisionConflict)

	err := r.Toggle(context.Background(), "guest@example.com", "m1", admin.ID, "👍")
	assert.ErrorIs(t, err, domain.ErrRevisionConflict)
	repo.AssertNumberOfCalls(t, "SetReactions", 3)
}

func TestReactionToggle_PermanentErrors(t *testing.T) {
	repo := new(MockConversationRepository)
	r := newTestToggle(repo, 5)

	repo.On("FindByID", mock.Anything, "guest@example.com").Return(conversationAt(1), nil)
	repo.On("FindByID", mock.Anything, "gone@example.com").Return(nil, domain.ErrConversationNotFound)

	err := r.Toggle(context.Background(), "guest@example.com", "missing", admin.ID, "👍")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	err = r.Toggle(context.Background(), "gone@example.com", "m1", admin.ID, "👍")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	repo.On("SetReactions", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("disk full")).Once()
	err = r.Toggle(context.Background(), "guest@example.com", "m1", admin.ID, "👍")
	assert.EqualError(t, err, "disk full")
	repo.AssertNumberOfCalls(t, "SetReactions", 1)

	assert.ErrorIs(t, r.Toggle(context.Background(), "guest@example.com", "m1", admin.ID, ""), errEmptyEmoji)
}
