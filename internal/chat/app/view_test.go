package app

import (
	"testing"
	"time"

	"portfolio_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0      = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	visitor = domain.Participant{ID: "guest@example.com", Name: "Guest", Role: domain.RoleVisitor}
	admin   = domain.Participant{ID: "owner@example.com", Name: "Owner", Role: domain.RoleAdmin}
)

func fixedClock() time.Time { return t0 }

func committed(id string, by domain.SenderRole, offset time.Duration) domain.Message {
	at := t0.Add(offset)
	return domain.Message{
		ID:        id,
		Text:      "text " + id,
		SentAt:    domain.CommittedAt(at, at),
		SentBy:    by,
		ReadBy:    []domain.ReadReceipt{},
		Reactions: []domain.Reaction{},
	}
}

func TestConversationView_PendingConfirmedBySnapshot(t *testing.T) {
	surface := &RecordingSurface{}
	v := NewConversationView(visitor, "guest@example.com", surface, time.Minute, fixedClock)

	pending := domain.Message{ID: "m1", Text: "hi", SentAt: domain.PendingAt(t0), SentBy: domain.RoleVisitor}
	v.AddPending(pending)
	assert.True(t, v.IsPending("m1"))
	assert.Equal(t, []string{"m1"}, surface.Last().PendingIDs)

	ok := v.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 1,
		Messages: []domain.Message{committed("m1", domain.RoleVisitor, 0)},
	})
	require.True(t, ok)

	state := surface.Last()
	assert.False(t, v.IsPending("m1"))
	assert.Empty(t, state.PendingIDs)
	// 同一則訊息只顯示一次
	require.Len(t, state.Messages, 1)
	assert.True(t, state.Messages[0].SentAt.IsCommitted())
}

func TestConversationView_StaleSnapshotIgnored(t *testing.T) {
	surface := &RecordingSurface{}
	v := NewConversationView(visitor, "guest@example.com", surface, time.Minute, fixedClock)

	require.True(t, v.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 3,
		Messages: []domain.Message{committed("m1", domain.RoleVisitor, 0), committed("m2", domain.RoleAdmin, time.Second)},
	}))
	renders := len(surface.Rendered())

	assert.False(t, v.ApplySnapshot(&domain.Conversation{ID: "guest@example.com", Revision: 2}))
	assert.False(t, v.ApplySnapshot(nil))

	assert.Len(t, surface.Rendered(), renders)
	assert.Equal(t, int64(3), v.State().Revision)
	assert.Len(t, v.State().Messages, 2)
}

func TestConversationView_RollbackRemovesPending(t *testing.T) {
	surface := &RecordingSurface{}
	v := NewConversationView(visitor, "guest@example.com", surface, time.Minute, fixedClock)

	v.AddPending(domain.Message{ID: "m1", Text: "hi", SentAt: domain.PendingAt(t0)})
	assert.True(t, v.RemovePending("m1"))
	assert.False(t, v.RemovePending("m1"))

	assert.Empty(t, surface.Last().Messages)
}

func TestConversationView_TypingAndPresenceOfOthers(t *testing.T) {
	v := NewConversationView(visitor, "guest@example.com", nil, time.Minute, fixedClock)

	v.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 1,
		Typing:   map[string]bool{admin.ID: true, visitor.ID: true},
		Presence: map[string]domain.PresenceEntry{
			admin.ID:   {LastHeartbeat: t0.Add(-30 * time.Second), State: domain.PresenceOnline},
			visitor.ID: {LastHeartbeat: t0, State: domain.PresenceOnline},
		},
	})

	state := v.State()
	assert.Equal(t, map[string]bool{admin.ID: true}, state.Typing)
	assert.Equal(t, map[string]bool{admin.ID: true}, state.Online)

	// heartbeat 過期後視為離線
	v.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 2,
		Presence: map[string]domain.PresenceEntry{
			admin.ID: {LastHeartbeat: t0.Add(-2 * time.Minute), State: domain.PresenceOnline},
		},
	})
	assert.False(t, v.State().Online[admin.ID])
	assert.Empty(t, v.State().Typing)
}

func TestConversationView_UnreadSuppressedAfterLocalReceipt(t *testing.T) {
	v := NewConversationView(visitor, "guest@example.com", nil, time.Minute, fixedClock)
	v.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 1,
		Messages: []domain.Message{
			committed("m1", domain.RoleVisitor, 0),
			committed("m2", domain.RoleAdmin, time.Second),
		},
	})
	assert.Equal(t, []string{"m2"}, v.Unread())

	v.ApplyReadReceipts([]string{"m2"}, t0)
	assert.Empty(t, v.Unread())

	// snapshot 還沒帶上回執也不會重複標記
	v.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 2,
		Messages: []domain.Message{
			committed("m1", domain.RoleVisitor, 0),
			committed("m2", domain.RoleAdmin, time.Second),
		},
	})
	assert.Empty(t, v.Unread())
}

func TestConversationView_ReceiptAlreadyInSnapshotNotTracked(t *testing.T) {
	v := NewConversationView(visitor, "guest@example.com", nil, time.Minute, fixedClock)

	read := committed("m1", domain.RoleAdmin, 0)
	read.ReadBy = []domain.ReadReceipt{{ParticipantID: visitor.ID, At: t0}}
	// 同步 feed: MarkRead 的 snapshot 比 ApplyReadReceipts 先到
	v.ApplySnapshot(&domain.Conversation{
		ID:       "guest@example.com",
		Revision: 1,
		Messages: []domain.Message{read, committed("m2", domain.RoleAdmin, time.Second)},
	})

	v.ApplyReadReceipts([]string{"m1", "m2"}, t0)
	assert.Empty(t, v.Unread())
	assert.NotContains(t, v.locallyRead, "m1")
	assert.Contains(t, v.locallyRead, "m2")
	require.Len(t, v.State().Messages, 2)
}
