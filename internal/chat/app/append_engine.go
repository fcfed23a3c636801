package app

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/pkg"
	"portfolio_chat_service/pkg/logger"
	"portfolio_chat_service/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// AppendEngine optimistic message append with rollback
type AppendEngine struct {
	repo    repository.ConversationRepository
	storage repository.AttachmentStorage
	events  repository.EventPublisher

	now   func() time.Time
	newID func() string
}

// NewAppendEngine create AppendEngine
func NewAppendEngine(repo repository.ConversationRepository, storage repository.AttachmentStorage, events repository.EventPublisher) *AppendEngine {
	if events == nil {
		events = repository.NewNopEventPublisher()
	}
	return &AppendEngine{
		repo:    repo,
		storage: storage,
		events:  events,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// AttachmentPath object key of an uploaded attachment
func AttachmentPath(conversationID string, at time.Time, fileName string) string {
	return fmt.Sprintf("attachments/%s/%d_%s", conversationID, at.UnixMilli(), path.Base(fileName))
}

// Submit 上傳附件 -> 顯示 pending -> 寫入, 寫入失敗時移除 pending 並通知一次.
// visible 在訊息顯示後、寫入前呼叫, 可為 nil
func (e *AppendEngine) Submit(ctx context.Context, view *ConversationView, sender domain.Participant, draft domain.Draft, visible func()) (string, error) {
	text := strings.TrimSpace(draft.Text)
	if text == "" && draft.Attachment == nil {
		metrics.AppendsTotal.WithLabelValues("empty").Inc()
		return "", domain.ErrEmptySubmission
	}

	conversationID := view.ConversationID()

	var imageURL string
	if draft.Attachment != nil {
		u, err := e.upload(ctx, conversationID, draft.Attachment)
		if err != nil {
			metrics.UploadsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			logger.Log.Error("attachment upload failed", zap.String("conversation", conversationID), zap.Error(err))
			view.Notify(domain.Notification{
				Title:       domain.TitleUploadFailed,
				Description: err.Error(),
				Variant:     domain.NotificationDestructive,
			})
			return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
		}
		metrics.UploadsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		imageURL = u
	}

	msg := domain.Message{
		ID:          e.newID(),
		Text:        text,
		ImageURL:    imageURL,
		SentAt:      domain.PendingAt(e.now()),
		SentBy:      sender.Role,
		SenderName:  sender.DisplayName(),
		SenderEmail: sender.ID,
		ReadBy:      []domain.ReadReceipt{},
		Reactions:   []domain.Reaction{},
	}

	view.AddPending(msg)
	if visible != nil {
		visible()
	}

	header := domain.ConversationHeader{ID: conversationID, SenderEmail: conversationID}
	if sender.Role == domain.RoleVisitor {
		header.SenderName = sender.DisplayName()
		header.SenderEmail = sender.ID
	}

	if err := e.repo.AppendMessage(ctx, header, msg); err != nil {
		metrics.AppendsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		logger.Log.Error("append message failed",
			zap.String("conversation", conversationID),
			zap.String("message", msg.ID),
			zap.Error(err))

		view.RemovePending(msg.ID)
		view.Notify(domain.Notification{
			Title:       domain.TitleReplyFailed,
			Description: err.Error(),
			Variant:     domain.NotificationDestructive,
		})
		return "", err
	}
	metrics.AppendsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	e.publish(ctx, conversationID, msg)
	return msg.ID, nil
}

func (e *AppendEngine) upload(ctx context.Context, conversationID string, a *domain.Attachment) (string, error) {
	if e.storage == nil {
		return "", fmt.Errorf("attachment storage not configured")
	}
	if !pkg.Contains(allowedImageTypes, a.ContentType) {
		return "", domain.ErrUnsupportedAttachment
	}

	p := AttachmentPath(conversationID, e.now(), a.Name)
	if err := e.storage.Upload(ctx, p, a.Data, a.ContentType); err != nil {
		return "", err
	}
	return e.storage.PublicURL(ctx, p)
}

// publish 失敗只記錄
func (e *AppendEngine) publish(ctx context.Context, conversationID string, msg domain.Message) {
	evt := domain.MessageEvent{
		Type:           domain.MessageEventAppended,
		ConversationID: conversationID,
		MessageID:      msg.ID,
		SentBy:         msg.SentBy,
		SenderEmail:    msg.SenderEmail,
		HasText:        msg.Text != "",
		HasImage:       msg.ImageURL != "",
		At:             msg.SentAt.Local,
	}
	if err := e.events.PublishMessageEvent(ctx, evt); err != nil {
		logger.Log.Warn("publish message event failed", zap.String("message", msg.ID), zap.Error(err))
	}
}
