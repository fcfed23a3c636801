package domain

import (
	"sort"
	"time"
)

// SentAt message timestamp, Local is assigned by the author before the write,
// Committed is stamped by the store clock once the append lands
type SentAt struct {
	Local     time.Time  `bson:"local" json:"local"`
	Committed *time.Time `bson:"committed,omitempty" json:"committed,omitempty"`
}

// PendingAt a not yet committed timestamp
func PendingAt(local time.Time) *SentAt {
	return &SentAt{Local: local}
}

// CommittedAt a timestamp stamped by the store
func CommittedAt(local, server time.Time) *SentAt {
	return &SentAt{Local: local, Committed: &server}
}

// IsCommitted store has stamped the timestamp
func (s *SentAt) IsCommitted() bool {
	return s != nil && s.Committed != nil && !s.Committed.IsZero()
}

// Instant committed value when present, else the local one
func (s *SentAt) Instant() time.Time {
	if s == nil {
		return time.Time{}
	}
	if s.IsCommitted() {
		return *s.Committed
	}
	return s.Local
}

// NormalizeInstant missing or zero timestamps collapse to now, never fails
func NormalizeInstant(s *SentAt, now time.Time) time.Time {
	t := s.Instant()
	if t.IsZero() {
		return now
	}
	return t
}

// CompareBySentAt ascending by normalized instant, equal instants compare 0
func CompareBySentAt(a, b *Message, now time.Time) int {
	ta := NormalizeInstant(a.SentAt, now)
	tb := NormalizeInstant(b.SentAt, now)
	switch {
	case ta.Before(tb):
		return -1
	case ta.After(tb):
		return 1
	default:
		return 0
	}
}

// SortMessages stable ascending copy, sorting a sorted list is a no-op
func SortMessages(messages []Message, now time.Time) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	sort.SliceStable(out, func(i, j int) bool {
		return CompareBySentAt(&out[i], &out[j], now) < 0
	})
	return out
}
