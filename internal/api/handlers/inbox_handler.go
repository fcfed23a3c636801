package handlers

import (
	"errors"

	"portfolio_chat_service/internal/chat/app"
	"portfolio_chat_service/internal/chat/domain"
	errprocess "portfolio_chat_service/pkg/err"

	"github.com/gofiber/fiber/v2"
)

// InboxHandler admin 对话列表
type InboxHandler struct {
	inboxUC *app.InboxUseCase
}

// NewInboxHandler create InboxHandler
func NewInboxHandler(inboxUC *app.InboxUseCase) *InboxHandler {
	return &InboxHandler{inboxUC: inboxUC}
}

// List 对话列表, 最新消息在前
// @Summary List conversations
// @Description Admin inbox ordered by last message
// @Tags Inbox
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.InboxEntry "conversations"
// @Failure 401 {object} string "missing or invalid token"
// @Failure 403 {object} string "admin only"
// @Router /conversations [get]
func (h *InboxHandler) List(c *fiber.Ctx) error {
	viewer, ok := app.ParticipantFromLocals(func(key string) interface{} { return c.Locals(key) })
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing identity"})
	}

	entries, err := h.inboxUC.List(c.UserContext(), viewer)
	if errors.Is(err, domain.ErrForbidden) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		err = errprocess.Wrap("list conversations failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(entries)
}
