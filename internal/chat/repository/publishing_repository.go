package repository

import (
	"context"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// publishingRepository 寫入成功後重新讀取並廣播最新 snapshot
type publishingRepository struct {
	ConversationRepository
	publisher SnapshotPublisher
}

// NewPublishingRepository wrap repo so every successful write is followed by a snapshot broadcast
func NewPublishingRepository(repo ConversationRepository, publisher SnapshotPublisher) ConversationRepository {
	return &publishingRepository{ConversationRepository: repo, publisher: publisher}
}

func (r *publishingRepository) AppendMessage(ctx context.Context, header domain.ConversationHeader, msg domain.Message) error {
	if err := r.ConversationRepository.AppendMessage(ctx, header, msg); err != nil {
		return err
	}
	r.broadcast(ctx, header.ID)
	return nil
}

func (r *publishingRepository) MarkRead(ctx context.Context, id, participantID string, messageIDs []string, at time.Time) error {
	if err := r.ConversationRepository.MarkRead(ctx, id, participantID, messageIDs, at); err != nil {
		return err
	}
	r.broadcast(ctx, id)
	return nil
}

func (r *publishingRepository) SetReactions(ctx context.Context, id string, revision int64, messageID string, reactions []domain.Reaction) error {
	if err := r.ConversationRepository.SetReactions(ctx, id, revision, messageID, reactions); err != nil {
		return err
	}
	r.broadcast(ctx, id)
	return nil
}

func (r *publishingRepository) SetTyping(ctx context.Context, id, participantID string, active bool) error {
	if err := r.ConversationRepository.SetTyping(ctx, id, participantID, active); err != nil {
		return err
	}
	r.broadcast(ctx, id)
	return nil
}

func (r *publishingRepository) SetPresence(ctx context.Context, id, participantID string, entry domain.PresenceEntry) error {
	if err := r.ConversationRepository.SetPresence(ctx, id, participantID, entry); err != nil {
		return err
	}
	r.broadcast(ctx, id)
	return nil
}

// broadcast 失敗只記錄, 寫入本身已成功
func (r *publishingRepository) broadcast(ctx context.Context, id string) {
	conv, err := r.ConversationRepository.FindByID(ctx, id)
	if err != nil {
		logger.Log.Error("reload for broadcast failed", zap.String("conversation", id), zap.Error(err))
		return
	}
	if err := r.publisher.PublishSnapshot(ctx, conv); err != nil {
		logger.Log.Error("broadcast snapshot failed", zap.String("conversation", id), zap.Error(err))
	}
}
