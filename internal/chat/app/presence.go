package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// PresenceSignaler heartbeat lease of one participant in one conversation
type PresenceSignaler struct {
	repo           repository.ConversationRepository
	conversationID string
	participantID  string
	interval       time.Duration
	now            func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPresenceSignaler create PresenceSignaler
func NewPresenceSignaler(repo repository.ConversationRepository, conversationID, participantID string, interval time.Duration) *PresenceSignaler {
	return &PresenceSignaler{
		repo:           repo,
		conversationID: conversationID,
		participantID:  participantID,
		interval:       interval,
		now:            time.Now,
	}
}

// Enter write a heartbeat and keep renewing it every interval until Leave or ctx ends
func (p *PresenceSignaler) Enter(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	beatCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.Beat(beatCtx)

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Beat(beatCtx)
			case <-beatCtx.Done():
				return
			}
		}
	}()
}

// Beat renew the lease
func (p *PresenceSignaler) Beat(ctx context.Context) {
	p.write(ctx, domain.PresenceEntry{LastHeartbeat: p.now(), State: domain.PresenceOnline})
}

// Leave stop the heartbeat and best effort write offline
func (p *PresenceSignaler) Leave(ctx context.Context) {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	p.write(ctx, domain.PresenceEntry{LastHeartbeat: p.now(), State: domain.PresenceOffline})
}

func (p *PresenceSignaler) write(ctx context.Context, entry domain.PresenceEntry) {
	err := p.repo.SetPresence(ctx, p.conversationID, p.participantID, entry)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConversationNotFound), errors.Is(err, context.Canceled):
		logger.Log.Debug("presence not written", zap.String("conversation", p.conversationID), zap.Error(err))
	default:
		logger.Log.Warn("set presence failed",
			zap.String("conversation", p.conversationID),
			zap.String("state", string(entry.State)),
			zap.Error(err))
	}
}
