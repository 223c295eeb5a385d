package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// ChatHandler exposes per-ticket conversation endpoints.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// PostMessage POST /tickets/:id/chat.
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	message, err := h.chat.PostMessage(c.UserContext(), actor, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ChatMessageFromDomain(message)})
}

// ListMessages GET /tickets/:id/chat.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	messages, err := h.chat.ListMessages(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, dto.ChatMessageFromDomain(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead POST /tickets/:id/chat/read. Marks every message in the thread
// as read by the caller.
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.chat.MarkTicketRead(c.UserContext(), c.Params("id"), actor.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unread GET /tickets/:id/chat/unread.
func (h *ChatHandler) Unread(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	unread, err := h.chat.HasUnread(c.UserContext(), c.Params("id"), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadResponse{Unread: unread}})
}

// DeleteMessage DELETE /chat/messages/:id.
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.chat.DeleteMessage(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddAttachment POST /chat/messages/:id/attachments.
func (h *ChatHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AddAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	attachment, err := h.chat.AddAttachment(c.UserContext(), actor, c.Params("id"), req.FileName, req.StorageKey)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AttachmentFromDomain(attachment)})
}

// DeleteAttachment DELETE /chat/attachments/:id.
func (h *ChatHandler) DeleteAttachment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.chat.DeleteAttachment(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
