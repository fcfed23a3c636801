package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeKey(t *testing.T) {
	for _, id := range []string{"guest@example.com", "$weird.name%2E@x.io", "plain"} {
		escaped := EscapeKey(id)
		assert.NotContains(t, escaped, ".")
		assert.NotContains(t, escaped, "$")
		assert.Equal(t, id, UnescapeKey(escaped))
	}
}

func TestUnreadFor(t *testing.T) {
	admin := Participant{ID: "owner@example.com", Role: RoleAdmin}
	messages := []Message{
		{ID: "1", SentBy: RoleVisitor},
		{ID: "2", SentBy: RoleVisitor, ReadBy: []ReadReceipt{{ParticipantID: admin.ID, At: base}}},
		{ID: "3", SentBy: RoleAdmin},
		{ID: "4", SentBy: RoleVisitor},
	}

	assert.Equal(t, []string{"1", "4"}, UnreadFor(messages, admin))
	assert.Equal(t, []string{"3"}, UnreadFor(messages, Participant{ID: "guest@example.com", Role: RoleVisitor}))
}

func TestParticipant_DisplayName(t *testing.T) {
	assert.Equal(t, "Admin", Participant{ID: "owner@example.com", Role: RoleAdmin}.DisplayName())
	assert.Equal(t, "guest@example.com", Participant{ID: "guest@example.com", Role: RoleVisitor}.DisplayName())
	assert.Equal(t, "Guest", Participant{ID: "guest@example.com", Name: "Guest", Role: RoleVisitor}.DisplayName())
}

func TestMessageJSON_KeyedByParticipant(t *testing.T) {
	m := Message{
		ID:        "m1",
		Text:      "hi",
		SentAt:    PendingAt(base),
		SentBy:    RoleVisitor,
		ReadBy:    []ReadReceipt{{ParticipantID: "owner@example.com", At: base}},
		Reactions: []Reaction{{ParticipantID: "owner@example.com", Emoji: "👍"}},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, map[string]interface{}{"owner@example.com": "👍"}, wire["reactions"])
	assert.Contains(t, wire["read_by"], "owner@example.com")

	var back Message
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m.Reactions, back.Reactions)
	assert.True(t, back.IsReadBy("owner@example.com"))
	assert.True(t, back.SentAt.Instant().Equal(base))
}

func TestConversation_LastMessage(t *testing.T) {
	c := Conversation{Messages: []Message{
		{ID: "late", SentAt: PendingAt(base.Add(time.Minute))},
		{ID: "early", SentAt: PendingAt(base)},
	}}
	assert.Equal(t, "late", c.LastMessage(base).ID)
	assert.Equal(t, 1, c.FindMessage("early"))
	assert.Equal(t, -1, c.FindMessage("nope"))
	assert.Nil(t, (&Conversation{}).LastMessage(base))
}

func TestConversationIDFor(t *testing.T) {
	assert.Equal(t, "guest@example.com", ConversationIDFor("  Guest@Example.com "))
}
