package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Chat           *handlers.ChatHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListMyTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Patch("/:id/priority", cfg.Tickets.ChangePriority)
	tickets.Post("/:id/assign", auth.RequireAdmin(), cfg.Tickets.AssignTicket)
	tickets.Post("/:id/feedback", cfg.Tickets.AddFeedback)
	tickets.Post("/:id/token/reveal", cfg.Tickets.RevealToken)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/restore", auth.RequireAdmin(), cfg.Tickets.RestoreTicket)
	tickets.Get("/:id/history", cfg.Tickets.GetHistory)

	tickets.Post("/:id/chat", cfg.Chat.PostMessage)
	tickets.Get("/:id/chat", cfg.Chat.ListMessages)
	tickets.Post("/:id/chat/read", cfg.Chat.MarkRead)
	tickets.Get("/:id/chat/unread", cfg.Chat.Unread)

	chat := api.Group("/chat")
	chat.Delete("/messages/:id", cfg.Chat.DeleteMessage)
	chat.Post("/messages/:id/attachments", cfg.Chat.AddAttachment)
	chat.Delete("/attachments/:id", cfg.Chat.DeleteAttachment)

	notifications := api.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/unread/count", cfg.Notifications.UnreadCount)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
