package domain

import (
	"strings"
	"time"
)

// SenderRole who authored a message
type SenderRole string

const (
	// RoleAdmin site owner
	RoleAdmin SenderRole = "admin"
	// RoleVisitor site visitor, conversation id is their email
	RoleVisitor SenderRole = "visitor"
)

// Other the counterpart role in a two-party conversation
func (r SenderRole) Other() SenderRole {
	if r == RoleAdmin {
		return RoleVisitor
	}
	return RoleAdmin
}

// Participant identity of a viewer, ID is the email
type Participant struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Role SenderRole `json:"role"`
}

// DisplayName name shown on messages, admin falls back to "Admin", visitor to the email
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Role == RoleAdmin {
		return "Admin"
	}
	return p.ID
}

// ConversationIDFor conversation id of a visitor email
func ConversationIDFor(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Conversation one thread per visitor, stored in collection "conversations"
type Conversation struct {
	ID            string                   `bson:"_id" json:"id"`
	SenderName    string                   `bson:"sender_name" json:"sender_name"`
	SenderEmail   string                   `bson:"sender_email" json:"sender_email"`
	LastMessageAt *time.Time               `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
	Messages      []Message                `bson:"messages" json:"messages"`
	Typing        map[string]bool          `bson:"typing,omitempty" json:"typing,omitempty"`
	Presence      map[string]PresenceEntry `bson:"presence,omitempty" json:"presence,omitempty"`
	GroupID       string                   `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Revision      int64                    `bson:"revision" json:"revision"`
}

// ConversationHeader fields written only when the conversation is created
type ConversationHeader struct {
	ID          string
	SenderName  string
	SenderEmail string
}

// FindMessage index of message id, -1 when absent
func (c *Conversation) FindMessage(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// LastMessage the most recent message by SentAt, nil when empty
func (c *Conversation) LastMessage(now time.Time) *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	sorted := SortMessages(c.Messages, now)
	return &sorted[len(sorted)-1]
}

// Message one chat entry, only ReadBy and Reactions change after append
type Message struct {
	ID          string        `bson:"id"`
	Text        string        `bson:"text,omitempty"`
	ImageURL    string        `bson:"image_url,omitempty"`
	SentAt      *SentAt       `bson:"sent_at,omitempty"`
	SentBy      SenderRole    `bson:"sent_by"`
	SenderName  string        `bson:"sender_name"`
	SenderEmail string        `bson:"sender_email"`
	ReadBy      []ReadReceipt `bson:"read_by"`
	Reactions   []Reaction    `bson:"reactions"`
}

// ReadReceipt participant has viewed the message at At
type ReadReceipt struct {
	ParticipantID string    `bson:"participant_id" json:"participant_id"`
	At            time.Time `bson:"at" json:"at"`
}

// Reaction single emoji of a participant on a message
type Reaction struct {
	ParticipantID string `bson:"participant_id" json:"participant_id"`
	Emoji         string `bson:"emoji" json:"emoji"`
}

// IsReadBy check participant has a read receipt
func (m *Message) IsReadBy(participantID string) bool {
	for _, r := range m.ReadBy {
		if r.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// UnreadFor durable messages from the other party the viewer has not read
func UnreadFor(messages []Message, viewer Participant) []string {
	var ids []string
	other := viewer.Role.Other()
	for i := range messages {
		m := &messages[i]
		if m.SentBy == other && !m.IsReadBy(viewer.ID) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Attachment an image picked by the composer
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Draft composed message before submission
type Draft struct {
	Text       string
	Attachment *Attachment
}
