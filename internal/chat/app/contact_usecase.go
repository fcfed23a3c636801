package app

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/pkg/logger"
	"portfolio_chat_service/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContactForm anonymous contact submission
type ContactForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Validate name >= 2 chars, a bare email address, message >= 10 chars
func (f ContactForm) Validate() error {
	name := strings.TrimSpace(f.Name)
	if utf8.RuneCountInString(name) < 2 {
		return fmt.Errorf("%w: name must be at least 2 characters", domain.ErrInvalidContact)
	}

	email := strings.TrimSpace(f.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: please enter a valid email", domain.ErrInvalidContact)
	}

	if utf8.RuneCountInString(strings.TrimSpace(f.Message)) < 10 {
		return fmt.Errorf("%w: message must be at least 10 characters", domain.ErrInvalidContact)
	}
	return nil
}

// ContactUseCase turns a contact form into the first (or next) message of the visitor's conversation
type ContactUseCase struct {
	repo   repository.ConversationRepository
	events repository.EventPublisher
	now    func() time.Time
}

// NewContactUseCase create ContactUseCase
func NewContactUseCase(repo repository.ConversationRepository, events repository.EventPublisher) *ContactUseCase {
	if events == nil {
		events = repository.NewNopEventPublisher()
	}
	return &ContactUseCase{repo: repo, events: events, now: time.Now}
}

// Submit validate and append, returns the conversation id
func (uc *ContactUseCase) Submit(ctx context.Context, f ContactForm) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	email := strings.TrimSpace(f.Email)
	name := strings.TrimSpace(f.Name)
	id := domain.ConversationIDFor(email)

	msg := domain.Message{
		ID:          uuid.New().String(),
		Text:        strings.TrimSpace(f.Message),
		SentAt:      domain.PendingAt(uc.now()),
		SentBy:      domain.RoleVisitor,
		SenderName:  name,
		SenderEmail: email,
		ReadBy:      []domain.ReadReceipt{},
		Reactions:   []domain.Reaction{},
	}

	header := domain.ConversationHeader{ID: id, SenderName: name, SenderEmail: email}
	if err := uc.repo.AppendMessage(ctx, header, msg); err != nil {
		metrics.AppendsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return "", err
	}
	metrics.AppendsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	err := uc.events.PublishMessageEvent(ctx, domain.MessageEvent{
		Type:           domain.MessageEventAppended,
		ConversationID: id,
		MessageID:      msg.ID,
		SentBy:         msg.SentBy,
		SenderEmail:    email,
		HasText:        true,
		At:             msg.SentAt.Local,
	})
	if err != nil {
		logger.Log.Warn("publish message event failed", zap.String("message", msg.ID), zap.Error(err))
	}
	return id, nil
}
