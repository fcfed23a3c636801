package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func countFor(reactions []Reaction, participant string) int {
	n := 0
	for _, r := range reactions {
		if r.ParticipantID == participant {
			n++
		}
	}
	return n
}

func TestToggleReaction(t *testing.T) {
	var r []Reaction

	r = ToggleReaction(r, "guest@example.com", "👍")
	assert.Equal(t, map[string]string{"guest@example.com": "👍"}, ReactionMap(r))

	// 換成另一個 emoji
	r = ToggleReaction(r, "guest@example.com", "❤️")
	assert.Equal(t, map[string]string{"guest@example.com": "❤️"}, ReactionMap(r))

	// 同一個 emoji 再按一次移除
	r = ToggleReaction(r, "guest@example.com", "❤️")
	assert.Empty(t, r)
}

func TestToggleReaction_AtMostOnePerParticipant(t *testing.T) {
	r := []Reaction{
		{ParticipantID: "admin@example.com", Emoji: "🎉"},
		{ParticipantID: "guest@example.com", Emoji: "👍"},
		{ParticipantID: "guest@example.com", Emoji: "😂"},
	}

	for _, emoji := range []string{"👍", "❤️", "😂", "😂", "🎉"} {
		r = ToggleReaction(r, "guest@example.com", emoji)
		assert.LessOrEqual(t, countFor(r, "guest@example.com"), 1)
		assert.Equal(t, 1, countFor(r, "admin@example.com"))
	}
}

func TestReactionsFromEmojiKeyed(t *testing.T) {
	legacy := map[string]string{
		"👍":  "guest@example.com",
		"❤️": "admin@example.com",
		"😂":  "guest@example.com",
		"🎉":  "",
	}

	got := ReactionMap(ReactionsFromEmojiKeyed(legacy))
	assert.Len(t, got, 2)
	assert.Equal(t, "❤️", got["admin@example.com"])
	assert.Contains(t, []string{"👍", "😂"}, got["guest@example.com"])
}
