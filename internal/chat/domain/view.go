package domain

import "time"

// ViewState rendered conversation for one viewer
type ViewState struct {
	ConversationID string          `json:"conversation_id"`
	Revision       int64           `json:"revision"`
	Messages       []Message       `json:"messages"`
	PendingIDs     []string        `json:"pending_ids,omitempty"`
	Typing         map[string]bool `json:"typing"`
	Online         map[string]bool `json:"online"`
}

// InboxEntry one row of the admin conversation list
type InboxEntry struct {
	ConversationID string     `json:"conversation_id"`
	SenderName     string     `json:"sender_name"`
	SenderEmail    string     `json:"sender_email"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	Preview        string     `json:"preview"`
	UnreadCount    int        `json:"unread_count"`
	VisitorOnline  bool       `json:"visitor_online"`
}

// Inbox preview fallbacks
const (
	PreviewEmpty = "No messages yet"
	PreviewImage = "Sent an image"
)

// NotificationVariant toast style
type NotificationVariant string

const (
	// NotificationDefault informational
	NotificationDefault NotificationVariant = "default"
	// NotificationDestructive failure
	NotificationDestructive NotificationVariant = "destructive"
)

// Notification user facing message delivered to the notification sink
type Notification struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Variant     NotificationVariant `json:"variant"`
}

// Notification titles
const (
	TitleReplyFailed  = "Reply Failed"
	TitleUploadFailed = "Upload Failed"
	TitleMessageSent  = "Message Sent!"
	TitleSendFailed   = "Could not send your message. Please try again."
)

// MessageEventAppended event type of a committed append
const MessageEventAppended = "message.appended"

// MessageEvent published after a message append is confirmed
type MessageEvent struct {
	Type           string     `json:"type"`
	ConversationID string     `json:"conversation_id"`
	MessageID      string     `json:"message_id"`
	SentBy         SenderRole `json:"sent_by"`
	SenderEmail    string     `json:"sender_email"`
	HasText        bool       `json:"has_text"`
	HasImage       bool       `json:"has_image"`
	At             time.Time  `json:"at"`
}
