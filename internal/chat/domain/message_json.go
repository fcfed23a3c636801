package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// messageJSON wire form, read_by and reactions are keyed by participant
type messageJSON struct {
	ID          string               `json:"id"`
	Text        string               `json:"text,omitempty"`
	ImageURL    string               `json:"image_url,omitempty"`
	SentAt      *SentAt              `json:"sent_at,omitempty"`
	SentBy      SenderRole           `json:"sent_by"`
	SenderName  string               `json:"sender_name"`
	SenderEmail string               `json:"sender_email"`
	ReadBy      map[string]time.Time `json:"read_by"`
	Reactions   map[string]string    `json:"reactions"`
}

// MarshalJSON implements json.Marshaler
func (m Message) MarshalJSON() ([]byte, error) {
	readBy := make(map[string]time.Time, len(m.ReadBy))
	for _, r := range m.ReadBy {
		if _, ok := readBy[r.ParticipantID]; !ok {
			readBy[r.ParticipantID] = r.At
		}
	}
	return json.Marshal(messageJSON{
		ID:          m.ID,
		Text:        m.Text,
		ImageURL:    m.ImageURL,
		SentAt:      m.SentAt,
		SentBy:      m.SentBy,
		SenderName:  m.SenderName,
		SenderEmail: m.SenderEmail,
		ReadBy:      readBy,
		Reactions:   ReactionMap(m.Reactions),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	readBy := make([]ReadReceipt, 0, len(w.ReadBy))
	for p, at := range w.ReadBy {
		readBy = append(readBy, ReadReceipt{ParticipantID: p, At: at})
	}
	sort.Slice(readBy, func(i, j int) bool { return readBy[i].ParticipantID < readBy[j].ParticipantID })

	*m = Message{
		ID:          w.ID,
		Text:        w.Text,
		ImageURL:    w.ImageURL,
		SentAt:      w.SentAt,
		SentBy:      w.SentBy,
		SenderName:  w.SenderName,
		SenderEmail: w.SenderEmail,
		ReadBy:      readBy,
		Reactions:   ReactionsFromMap(w.Reactions),
	}
	return nil
}
