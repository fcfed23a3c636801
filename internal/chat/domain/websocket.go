package domain

// Action websocket request action
type Action string

const (
	// EnterConversation websocket action enter_conversation
	EnterConversation Action = "enter_conversation"
	// LeaveConversation websocket action leave_conversation
	LeaveConversation Action = "leave_conversation"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// MarkRead websocket action mark_read
	MarkRead Action = "mark_read"

	// Typing websocket action typing, one per keystroke
	Typing Action = "typing"
	// StopTyping websocket action stop_typing
	StopTyping Action = "stop_typing"

	// ToggleReactionAction websocket action toggle_reaction
	ToggleReactionAction Action = "toggle_reaction"

	// Heartbeat websocket action heartbeat
	Heartbeat Action = "heartbeat"

	// ListConversations websocket action list_conversations (admin)
	ListConversations Action = "list_conversations"

	// SnapshotPush server push of the rendered view
	SnapshotPush Action = "snapshot"
	// NotifyPush server push of a notification
	NotifyPush Action = "notify"
	// InboxPush server push of the admin conversation list
	InboxPush Action = "inbox"
)

// WSAttachment attachment carried inline, Data is base64 in JSON
type WSAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// WSRequest websocket request
type WSRequest struct {
	Action         Action        `json:"action"`
	ConversationID string        `json:"conversation_id"`
	MessageID      string        `json:"message_id"`
	Text           string        `json:"text"`
	Emoji          string        `json:"emoji"`
	Attachment     *WSAttachment `json:"attachment,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
