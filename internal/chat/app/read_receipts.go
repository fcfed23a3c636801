package app

import (
	"context"
	"time"

	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/pkg/logger"
	"portfolio_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// ReadReceiptTracker marks the other party's messages read for the viewer
type ReadReceiptTracker struct {
	repo repository.ConversationRepository
	now  func() time.Time
}

// NewReadReceiptTracker create ReadReceiptTracker
func NewReadReceiptTracker(repo repository.ConversationRepository) *ReadReceiptTracker {
	return &ReadReceiptTracker{repo: repo, now: time.Now}
}

// Trigger one write covering every unread message, nothing unread means no write.
// Failed messages stay unread for the next trigger
func (t *ReadReceiptTracker) Trigger(ctx context.Context, view *ConversationView) (int, error) {
	ids := view.Unread()
	if len(ids) == 0 {
		return 0, nil
	}

	at := t.now()
	viewer := view.Viewer()
	if err := t.repo.MarkRead(ctx, view.ConversationID(), viewer.ID, ids, at); err != nil {
		logger.Log.Error("mark read failed",
			zap.String("conversation", view.ConversationID()),
			zap.String("viewer", viewer.ID),
			zap.Int("count", len(ids)),
			zap.Error(err))
		return 0, err
	}

	view.ApplyReadReceipts(ids, at)
	metrics.ReadReceiptsTotal.Add(float64(len(ids)))
	return len(ids), nil
}
