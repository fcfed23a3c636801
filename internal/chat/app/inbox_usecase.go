package app

import (
	"context"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/internal/chat/repository"
)

// InboxUseCase admin conversation list
type InboxUseCase struct {
	repo           repository.ConversationRepository
	limit          int64
	presenceWindow time.Duration
	now            func() time.Time
}

// NewInboxUseCase create InboxUseCase
func NewInboxUseCase(repo repository.ConversationRepository, limit int64, presenceWindow time.Duration) *InboxUseCase {
	return &InboxUseCase{
		repo:           repo,
		limit:          limit,
		presenceWindow: presenceWindow,
		now:            time.Now,
	}
}

// List conversations by last message, newest first
func (uc *InboxUseCase) List(ctx context.Context, viewer domain.Participant) ([]domain.InboxEntry, error) {
	if viewer.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	conversations, err := uc.repo.ListByLastMessage(ctx, uc.limit)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	entries := make([]domain.InboxEntry, 0, len(conversations))
	for _, c := range conversations {
		entries = append(entries, domain.InboxEntry{
			ConversationID: c.ID,
			SenderName:     c.SenderName,
			SenderEmail:    c.SenderEmail,
			LastMessageAt:  c.LastMessageAt,
			Preview:        preview(c, now),
			UnreadCount:    len(domain.UnreadFor(c.Messages, viewer)),
			VisitorOnline:  domain.IsOnline(c.Presence[c.ID], now, uc.presenceWindow),
		})
	}
	return entries, nil
}

func preview(c *domain.Conversation, now time.Time) string {
	last := c.LastMessage(now)
	switch {
	case last == nil:
		return domain.PreviewEmpty
	case last.Text != "":
		return last.Text
	default:
		return domain.PreviewImage
	}
}
