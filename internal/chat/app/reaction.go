package app

import (
	"context"
	"errors"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
)

var errEmptyEmoji = errors.New("emoji is required")

// ReactionToggle read-modify-write of a message's reactions guarded by the conversation revision
type ReactionToggle struct {
	repo       repository.ConversationRepository
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewReactionToggle create ReactionToggle, conflicts are retried up to maxRetries times
func NewReactionToggle(repo repository.ConversationRepository, maxRetries uint64) *ReactionToggle {
	return &ReactionToggle{
		repo:       repo,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 20 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			return b
		},
	}
}

// Toggle same emoji removes the participant's reaction, another emoji replaces it
func (r *ReactionToggle) Toggle(ctx context.Context, conversationID, messageID, participantID, emoji string) error {
	if emoji == "" {
		return errEmptyEmoji
	}

	op := func() error {
		conv, err := r.repo.FindByID(ctx, conversationID)
		if err != nil {
			return backoff.Permanent(err)
		}
		i := conv.FindMessage(messageID)
		if i < 0 {
			return backoff.Permanent(domain.ErrMessageNotFound)
		}

		next := domain.ToggleReaction(conv.Messages[i].Reactions, participantID, emoji)
		err = r.repo.SetReactions(ctx, conversationID, conv.Revision, messageID, next)
		if errors.Is(err, domain.ErrRevisionConflict) {
			metrics.ReactionConflictsTotal.Inc()
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), r.maxRetries), ctx)
	return backoff.Retry(op, b)
}
