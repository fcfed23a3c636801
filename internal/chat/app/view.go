package app

import (
	"sync"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Renderer receives every rendered view state
type Renderer interface {
	Render(state domain.ViewState)
}

// Notifier user facing notification sink
type Notifier interface {
	Notify(n domain.Notification)
}

// Surface client side of a conversation view
type Surface interface {
	Renderer
	Notifier
}

// ConversationView 持有最新的 durable snapshot 與尚未確認的 optimistic 訊息
type ConversationView struct {
	mu       sync.Mutex
	renderMu sync.Mutex

	viewer         domain.Participant
	conversationID string
	durable        *domain.Conversation
	pending        []domain.Message
	locallyRead    map[string]struct{}

	surface        Surface
	now            func() time.Time
	presenceWindow time.Duration
}

// NewConversationView create ConversationView
func NewConversationView(viewer domain.Participant, conversationID string, surface Surface, presenceWindow time.Duration, now func() time.Time) *ConversationView {
	if now == nil {
		now = time.Now
	}
	return &ConversationView{
		viewer:         viewer,
		conversationID: conversationID,
		durable:        &domain.Conversation{ID: conversationID},
		locallyRead:    make(map[string]struct{}),
		surface:        surface,
		now:            now,
		presenceWindow: presenceWindow,
	}
}

// ConversationID id of the viewed conversation
func (v *ConversationView) ConversationID() string {
	return v.conversationID
}

// Viewer participant owning the view
func (v *ConversationView) Viewer() domain.Participant {
	return v.viewer
}

// ApplySnapshot replace the durable state, snapshots older than the held one are ignored
func (v *ConversationView) ApplySnapshot(conv *domain.Conversation) bool {
	v.mu.Lock()
	if conv == nil || conv.Revision < v.durable.Revision {
		v.mu.Unlock()
		return false
	}
	v.durable = conv

	// 已經出現在 snapshot 中的 pending 訊息視為確認
	kept := v.pending[:0]
	for _, m := range v.pending {
		if conv.FindMessage(m.ID) < 0 {
			kept = append(kept, m)
		}
	}
	v.pending = kept

	for id := range v.locallyRead {
		if i := conv.FindMessage(id); i >= 0 && conv.Messages[i].IsReadBy(v.viewer.ID) {
			delete(v.locallyRead, id)
		}
	}
	v.mu.Unlock()

	v.emit()
	return true
}

// AddPending show an optimistic message
func (v *ConversationView) AddPending(msg domain.Message) {
	v.mu.Lock()
	v.pending = append(v.pending, msg)
	v.mu.Unlock()

	v.emit()
}

// RemovePending roll back an optimistic message
func (v *ConversationView) RemovePending(id string) bool {
	v.mu.Lock()
	removed := false
	for i, m := range v.pending {
		if m.ID == id {
			v.pending = append(v.pending[:i], v.pending[i+1:]...)
			removed = true
			break
		}
	}
	v.mu.Unlock()

	if removed {
		v.emit()
	}
	return removed
}

// IsPending message is shown but not yet in a snapshot
func (v *ConversationView) IsPending(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range v.pending {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Unread durable messages from the other party still lacking the viewer's receipt
func (v *ConversationView) Unread() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var ids []string
	for _, id := range domain.UnreadFor(v.durable.Messages, v.viewer) {
		if _, ok := v.locallyRead[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ApplyReadReceipts record receipts written by this viewer until a snapshot carries them
func (v *ConversationView) ApplyReadReceipts(ids []string, at time.Time) {
	v.mu.Lock()
	for _, id := range ids {
		// snapshot 已帶回執時 (同步 feed) 不需要再記, 否則不會被清掉
		if i := v.durable.FindMessage(id); i >= 0 && v.durable.Messages[i].IsReadBy(v.viewer.ID) {
			continue
		}
		v.locallyRead[id] = struct{}{}
	}

	// snapshot 可能與其他 goroutine 共用, 先複製再修改
	conv := *v.durable
	conv.Messages = append([]domain.Message(nil), v.durable.Messages...)
	for _, id := range ids {
		if i := conv.FindMessage(id); i >= 0 && !conv.Messages[i].IsReadBy(v.viewer.ID) {
			m := conv.Messages[i]
			m.ReadBy = append(append([]domain.ReadReceipt(nil), m.ReadBy...), domain.ReadReceipt{ParticipantID: v.viewer.ID, At: at})
			conv.Messages[i] = m
		}
	}
	v.durable = &conv
	v.mu.Unlock()

	v.emit()
}

// Notify forward a notification to the surface
func (v *ConversationView) Notify(n domain.Notification) {
	if v.surface == nil {
		logger.Log.Warn("notification without surface",
			zap.String("conversation", v.conversationID),
			zap.String("title", n.Title),
			zap.String("description", n.Description))
		return
	}
	v.surface.Notify(n)
}

// State current rendered state
func (v *ConversationView) State() domain.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *ConversationView) stateLocked() domain.ViewState {
	now := v.now()

	all := make([]domain.Message, 0, len(v.durable.Messages)+len(v.pending))
	all = append(all, v.durable.Messages...)
	all = append(all, v.pending...)

	pendingIDs := make([]string, 0, len(v.pending))
	for _, m := range v.pending {
		pendingIDs = append(pendingIDs, m.ID)
	}

	typing := make(map[string]bool)
	for p, active := range v.durable.Typing {
		if p != v.viewer.ID && active {
			typing[p] = true
		}
	}

	online := make(map[string]bool)
	for p, entry := range v.durable.Presence {
		if p != v.viewer.ID {
			online[p] = domain.IsOnline(entry, now, v.presenceWindow)
		}
	}

	return domain.ViewState{
		ConversationID: v.conversationID,
		Revision:       v.durable.Revision,
		Messages:       domain.SortMessages(all, now),
		PendingIDs:     pendingIDs,
		Typing:         typing,
		Online:         online,
	}
}

// emit render 依序執行且每次都取最新狀態
func (v *ConversationView) emit() {
	if v.surface == nil {
		return
	}
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	v.surface.Render(v.State())
}
