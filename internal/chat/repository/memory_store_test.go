package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"portfolio_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0     = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	header = domain.ConversationHeader{ID: "guest@example.com", SenderName: "Guest", SenderEmail: "guest@example.com"}
)

func visitorMessage(id string) domain.Message {
	return domain.Message{
		ID:          id,
		Text:        "hello " + id,
		SentAt:      domain.PendingAt(t0),
		SentBy:      domain.RoleVisitor,
		SenderName:  "Guest",
		SenderEmail: "guest@example.com",
	}
}

func TestMemoryStore_AppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SetClock(func() time.Time { return t0.Add(time.Second) })

	require.NoError(t, s.AppendMessage(ctx, header, visitorMessage("m1")))
	require.NoError(t, s.AppendMessage(ctx, header, visitorMessage("m1")))

	conv, err := s.FindByID(ctx, header.ID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)
	assert.Equal(t, "Guest", conv.SenderName)
	assert.True(t, conv.Messages[0].SentAt.IsCommitted())
	assert.Equal(t, t0.Add(time.Second), *conv.LastMessageAt)
	assert.Equal(t, int64(1), conv.Revision)
}

func TestMemoryStore_MarkReadAdditive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.AppendMessage(ctx, header, visitorMessage("m1")))

	require.NoError(t, s.MarkRead(ctx, header.ID, "owner@example.com", []string{"m1"}, t0))
	require.NoError(t, s.MarkRead(ctx, header.ID, "owner@example.com", []string{"m1"}, t0.Add(time.Hour)))

	conv, _ := s.FindByID(ctx, header.ID)
	require.Len(t, conv.Messages[0].ReadBy, 1)
	assert.Equal(t, t0, conv.Messages[0].ReadBy[0].At)

	assert.ErrorIs(t, s.MarkRead(ctx, "nobody", "x", []string{"m1"}, t0), domain.ErrConversationNotFound)
}

func TestMemoryStore_SetReactionsCAS(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.AppendMessage(ctx, header, visitorMessage("m1")))
	conv, _ := s.FindByID(ctx, header.ID)

	reactions := []domain.Reaction{{ParticipantID: "owner@example.com", Emoji: "👍"}}
	require.NoError(t, s.SetReactions(ctx, header.ID, conv.Revision, "m1", reactions))

	// 舊 revision 寫入失敗
	assert.ErrorIs(t, s.SetReactions(ctx, header.ID, conv.Revision, "m1", nil), domain.ErrRevisionConflict)

	conv, _ = s.FindByID(ctx, header.ID)
	assert.Equal(t, reactions, conv.Messages[0].Reactions)
}

func TestMemoryStore_SignalsNeedConversation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.ErrorIs(t, s.SetTyping(ctx, header.ID, "guest@example.com", true), domain.ErrConversationNotFound)

	require.NoError(t, s.AppendMessage(ctx, header, visitorMessage("m1")))
	require.NoError(t, s.SetTyping(ctx, header.ID, "guest@example.com", true))
	require.NoError(t, s.SetPresence(ctx, header.ID, "guest@example.com", domain.PresenceEntry{LastHeartbeat: t0, State: domain.PresenceOnline}))

	conv, _ := s.FindByID(ctx, header.ID)
	assert.True(t, conv.Typing["guest@example.com"])
	assert.Equal(t, domain.PresenceOnline, conv.Presence["guest@example.com"].State)
}

func TestMemoryStore_ListByLastMessage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	clock := t0
	s.SetClock(func() time.Time { return clock })
	require.NoError(t, s.AppendMessage(ctx, header, visitorMessage("m1")))
	clock = t0.Add(time.Minute)
	other := domain.ConversationHeader{ID: "late@example.com", SenderEmail: "late@example.com"}
	require.NoError(t, s.AppendMessage(ctx, other, visitorMessage("m2")))

	list, err := s.ListByLastMessage(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "late@example.com", list[0].ID)

	list, _ = s.ListByLastMessage(ctx, 1)
	assert.Len(t, list, 1)
}

func TestPublishingRepository_BroadcastsSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	repo := NewPublishingRepository(s, s)

	var (
		mu        sync.Mutex
		revisions []int64
		inbox     []string
	)
	unsubscribe, err := s.Subscribe(ctx, header.ID, func(c *domain.Conversation) {
		mu.Lock()
		defer mu.Unlock()
		revisions = append(revisions, c.Revision)
	})
	require.NoError(t, err)
	unInbox, err := s.SubscribeInbox(ctx, func(id string) {
		mu.Lock()
		defer mu.Unlock()
		inbox = append(inbox, id)
	})
	require.NoError(t, err)

	require.NoError(t, repo.AppendMessage(ctx, header, visitorMessage("m1")))
	require.NoError(t, repo.SetTyping(ctx, header.ID, "guest@example.com", true))

	unsubscribe()
	unInbox()
	require.NoError(t, repo.SetTyping(ctx, header.ID, "guest@example.com", false))

	mu.Lock()
	defer mu.Unlock()
	// 初始空對話 + 兩次寫入
	assert.Equal(t, []int64{0, 1, 2}, revisions)
	assert.Equal(t, []string{header.ID, header.ID}, inbox)
}
