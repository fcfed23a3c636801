package handlers

import (
	"errors"
	"strings"

	"portfolio_chat_service/internal/chat/app"
	"portfolio_chat_service/internal/chat/domain"
	errprocess "portfolio_chat_service/pkg/err"
	"portfolio_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ContactHandler 处理访客联络表单
type ContactHandler struct {
	contactUC *app.ContactUseCase
}

// NewContactHandler create ContactHandler
func NewContactHandler(contactUC *app.ContactUseCase) *ContactHandler {
	return &ContactHandler{contactUC: contactUC}
}

// contactResponse body of /contact responses
type contactResponse struct {
	ConversationID string              `json:"conversation_id,omitempty"`
	Notification   domain.Notification `json:"notification"`
}

// Submit 提交联络表单
// @Summary Submit contact form
// @Description Validates the form and appends it to the visitor's conversation
// @Tags Contact
// @Accept json
// @Produce json
// @Param request body app.ContactForm true "contact form"
// @Success 200 {object} contactResponse "message sent"
// @Failure 400 {object} contactResponse "validation failed"
// @Failure 500 {object} contactResponse "append failed"
// @Router /contact [post]
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var form app.ContactForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(contactResponse{
			Notification: failed(errprocess.Set("invalid contact request").Error()),
		})
	}

	id, err := h.contactUC.Submit(c.UserContext(), form)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidContact):
		// 只回傳欄位說明
		msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidContact.Error()+": ")
		return c.Status(fiber.StatusBadRequest).JSON(contactResponse{Notification: failed(msg)})
	default:
		logger.Log.Error("contact submit failed", zap.String("email", form.Email), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(contactResponse{
			Notification: failed(domain.TitleSendFailed),
		})
	}

	logger.Log.Info("contact submitted", zap.String("conversation", id))
	return c.JSON(contactResponse{
		ConversationID: id,
		Notification: domain.Notification{
			Title:       domain.TitleMessageSent,
			Description: "Thanks for reaching out. I'll get back to you soon.",
			Variant:     domain.NotificationDefault,
		},
	})
}

func failed(description string) domain.Notification {
	return domain.Notification{
		Title:       domain.TitleSendFailed,
		Description: description,
		Variant:     domain.NotificationDestructive,
	}
}
