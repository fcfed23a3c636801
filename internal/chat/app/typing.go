package app

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/pkg/logger"
	"portfolio_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// TypingSignaler debounced typing flag: true on the first keystroke,
// false after a quiet period with no keystroke
type TypingSignaler struct {
	repo           repository.ConversationRepository
	conversationID string
	participantID  string
	quiet          time.Duration

	mu     sync.Mutex
	ctx    context.Context
	active bool
	gen    uint64
	timer  *time.Timer

	// writeMu 讓 true / false 依序落地, 計時器與呼叫端不會交錯
	writeMu sync.Mutex
}

// NewTypingSignaler create TypingSignaler, writes use ctx
func NewTypingSignaler(ctx context.Context, repo repository.ConversationRepository, conversationID, participantID string, quiet time.Duration) *TypingSignaler {
	return &TypingSignaler{
		repo:           repo,
		conversationID: conversationID,
		participantID:  participantID,
		quiet:          quiet,
		ctx:            ctx,
	}
}

// Keystroke 重新開始計時, 只有第一次才寫入 true
func (s *TypingSignaler) Keystroke() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	wasActive := s.active
	s.active = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.quiet, func() { s.expire(gen) })
	s.mu.Unlock()

	if !wasActive {
		s.write(s.ctx, true)
	}
}

// Stop clear the flag immediately (submit, view close)
func (s *TypingSignaler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	wasActive := s.active
	s.active = false
	s.mu.Unlock()

	if wasActive {
		s.write(ctx, false)
	}
}

// Active local typing state
func (s *TypingSignaler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *TypingSignaler) expire(gen uint64) {
	s.mu.Lock()
	// 計時器已被新的 keystroke 或 Stop 取代
	if gen != s.gen || !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.timer = nil
	s.mu.Unlock()

	s.write(s.ctx, false)
}

func (s *TypingSignaler) write(ctx context.Context, active bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// 等鎖期間狀態已翻轉, 由翻轉的那一方負責寫入
	s.mu.Lock()
	current := s.active
	s.mu.Unlock()
	if current != active {
		return
	}

	metrics.TypingSignalsTotal.WithLabelValues(strconv.FormatBool(active)).Inc()

	err := s.repo.SetTyping(ctx, s.conversationID, s.participantID, active)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConversationNotFound):
		logger.Log.Debug("typing before first message", zap.String("conversation", s.conversationID))
	default:
		logger.Log.Warn("set typing failed",
			zap.String("conversation", s.conversationID),
			zap.Bool("active", active),
			zap.Error(err))
	}
}
