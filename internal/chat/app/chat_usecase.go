package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/pkg/config"
	"portfolio_chat_service/pkg/logger"
	"portfolio_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// closeTimeout 關閉 session 時的 best effort 寫入時限
const closeTimeout = 3 * time.Second

// ChatUseCase opens chat sessions
type ChatUseCase struct {
	repo      repository.ConversationRepository
	feed      repository.ConversationFeed
	engine    *AppendEngine
	reads     *ReadReceiptTracker
	reactions *ReactionToggle
	sync      config.SyncConfig
	now       func() time.Time
}

// NewChatUseCase create ChatUseCase
func NewChatUseCase(
	repo repository.ConversationRepository,
	feed repository.ConversationFeed,
	storage repository.AttachmentStorage,
	events repository.EventPublisher,
	syncCfg config.SyncConfig,
) *ChatUseCase {
	syncCfg = syncCfg.WithDefaults()
	return &ChatUseCase{
		repo:      repo,
		feed:      feed,
		engine:    NewAppendEngine(repo, storage, events),
		reads:     NewReadReceiptTracker(repo),
		reactions: NewReactionToggle(repo, syncCfg.ReactionRetries),
		sync:      syncCfg,
		now:       time.Now,
	}
}

// ResolveConversation visitors only reach their own conversation, admins any
func ResolveConversation(viewer domain.Participant, conversationID string) (string, error) {
	if viewer.Role == domain.RoleVisitor {
		own := domain.ConversationIDFor(viewer.ID)
		if conversationID != "" && domain.ConversationIDFor(conversationID) != own {
			return "", domain.ErrForbidden
		}
		return own, nil
	}
	if viewer.Role != domain.RoleAdmin {
		return "", domain.ErrForbidden
	}

	id := domain.ConversationIDFor(conversationID)
	if id == "" {
		return "", domain.ErrConversationNotFound
	}
	return id, nil
}

// Open bind viewer to a conversation: subscribe, start presence, mark reads
func (uc *ChatUseCase) Open(ctx context.Context, viewer domain.Participant, conversationID string, surface Surface) (*ChatSession, error) {
	// receipt / typing / presence 的 key 與 conversation id 用同一種寫法
	viewer.ID = domain.ConversationIDFor(viewer.ID)
	id, err := ResolveConversation(viewer, conversationID)
	if err != nil {
		return nil, err
	}

	sessCtx, cancel := context.WithCancel(ctx)
	s := &ChatSession{
		uc:       uc,
		viewer:   viewer,
		ctx:      sessCtx,
		cancel:   cancel,
		view:     NewConversationView(viewer, id, surface, uc.sync.PresenceWindow, uc.now),
		typing:   NewTypingSignaler(sessCtx, uc.repo, id, viewer.ID, uc.sync.TypingQuietPeriod),
		presence: NewPresenceSignaler(uc.repo, id, viewer.ID, uc.sync.HeartbeatInterval),
		readReq:  make(chan struct{}, 1),
		readDone: make(chan struct{}),
	}

	go s.readLoop()

	unsubscribe, err := uc.feed.Subscribe(sessCtx, id, s.onSnapshot)
	if err != nil {
		cancel()
		<-s.readDone
		return nil, err
	}
	s.unsubscribe = unsubscribe

	s.presence.Enter(sessCtx)
	metrics.ActiveSessions.Inc()

	logger.Log.Info("chat session opened",
		zap.String("conversation", id),
		zap.String("viewer", viewer.ID),
		zap.String("role", string(viewer.Role)))
	return s, nil
}

// ChatSession one viewer on one conversation
type ChatSession struct {
	uc     *ChatUseCase
	viewer domain.Participant
	ctx    context.Context
	cancel context.CancelFunc

	view        *ConversationView
	typing      *TypingSignaler
	presence    *PresenceSignaler
	unsubscribe func()

	readReq  chan struct{}
	readDone chan struct{}

	closeOnce sync.Once
}

// ConversationID id of the open conversation
func (s *ChatSession) ConversationID() string {
	return s.view.ConversationID()
}

// View the session's conversation view
func (s *ChatSession) View() *ConversationView {
	return s.view
}

// Submit optimistic append, typing is cleared once the message is visible
func (s *ChatSession) Submit(ctx context.Context, draft domain.Draft) (string, error) {
	return s.uc.engine.Submit(ctx, s.view, s.viewer, draft, func() {
		s.typing.Stop(ctx)
	})
}

// Keystroke typing signal
func (s *ChatSession) Keystroke() {
	s.typing.Keystroke()
}

// StopTyping clear typing now
func (s *ChatSession) StopTyping(ctx context.Context) {
	s.typing.Stop(ctx)
}

// ToggleReaction toggle the viewer's emoji on a message
func (s *ChatSession) ToggleReaction(ctx context.Context, messageID, emoji string) error {
	return s.uc.reactions.Toggle(ctx, s.ConversationID(), messageID, s.viewer.ID, emoji)
}

// MarkRead explicit read trigger
func (s *ChatSession) MarkRead(ctx context.Context) (int, error) {
	return s.uc.reads.Trigger(ctx, s.view)
}

// Heartbeat renew presence out of band
func (s *ChatSession) Heartbeat(ctx context.Context) {
	s.presence.Beat(ctx)
}

// State current rendered view
func (s *ChatSession) State() domain.ViewState {
	return s.view.State()
}

// Close stop feed and heartbeat, clear typing, best effort offline write
func (s *ChatSession) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), closeTimeout)
		defer cancel()
		s.typing.Stop(ctx)
		s.presence.Leave(ctx)

		s.cancel()
		<-s.readDone
		metrics.ActiveSessions.Dec()

		logger.Log.Info("chat session closed",
			zap.String("conversation", s.ConversationID()),
			zap.String("viewer", s.viewer.ID))
	})
}

func (s *ChatSession) onSnapshot(conv *domain.Conversation) {
	if s.view.ApplySnapshot(conv) {
		s.requestRead()
	}
}

// requestRead 合併連續的觸發, 同一時間只有一個 MarkRead 在執行
func (s *ChatSession) requestRead() {
	select {
	case s.readReq <- struct{}{}:
	default:
	}
}

func (s *ChatSession) readLoop() {
	defer close(s.readDone)
	for {
		select {
		case <-s.readReq:
			if _, err := s.uc.reads.Trigger(s.ctx, s.view); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Debug("read trigger failed", zap.String("conversation", s.ConversationID()), zap.Error(err))
			}
		case <-s.ctx.Done():
			return
		}
	}
}
