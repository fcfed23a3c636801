package domain

import "sort"

// ToggleReaction same emoji removes it, anything else replaces, at most one per participant
func ToggleReaction(reactions []Reaction, participantID, emoji string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	var current string
	for _, r := range reactions {
		if r.ParticipantID == participantID {
			// 重複資料只保留第一筆
			if current == "" {
				current = r.Emoji
			}
			continue
		}
		out = append(out, r)
	}

	if current == emoji {
		return out
	}
	return append(out, Reaction{ParticipantID: participantID, Emoji: emoji})
}

// ReactionMap participant -> emoji
func ReactionMap(reactions []Reaction) map[string]string {
	m := make(map[string]string, len(reactions))
	for _, r := range reactions {
		if _, ok := m[r.ParticipantID]; !ok {
			m[r.ParticipantID] = r.Emoji
		}
	}
	return m
}

// ReactionsFromMap participant -> emoji map into the stored list, ordered by participant
func ReactionsFromMap(m map[string]string) []Reaction {
	out := make([]Reaction, 0, len(m))
	for p, e := range m {
		if e == "" {
			continue
		}
		out = append(out, Reaction{ParticipantID: p, Emoji: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}

// ReactionsFromEmojiKeyed legacy emoji -> participant encoding, a participant
// listed under several emojis keeps the lexically first one
func ReactionsFromEmojiKeyed(legacy map[string]string) []Reaction {
	emojis := make([]string, 0, len(legacy))
	for e := range legacy {
		emojis = append(emojis, e)
	}
	sort.Strings(emojis)

	m := make(map[string]string, len(legacy))
	for _, e := range emojis {
		p := legacy[e]
		if p == "" {
			continue
		}
		if _, ok := m[p]; !ok {
			m[p] = e
		}
	}
	return ReactionsFromMap(m)
}
