package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
)

// NotificationWorker observes committed ticket events and emits delivery
// stubs. In-app notifications are persisted transactionally by the engine;
// this worker only covers the out-of-band channels.
type NotificationWorker struct {
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewNotificationWorker constructs the worker.
func NewNotificationWorker(cfg config.NotificationConfig, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{cfg: cfg, logger: logger}
}

// Start subscribes the worker to every ticket event type.
func (w *NotificationWorker) Start(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketAssigned,
		events.EventFeedbackAdded,
		events.EventChatMessagePosted,
	} {
		dispatcher.Subscribe(eventType, w.handle)
	}
}

func (w *NotificationWorker) handle(ctx context.Context, event events.Event) error {
	w.sendEmailStub(event)
	w.sendWebhookStub(event)
	return nil
}

// sendEmailStub logs where an email delivery would go. A real sender would
// resolve recipient addresses from the notification records.
func (w *NotificationWorker) sendEmailStub(event events.Event) {
	w.logger.Debug("email delivery stub",
		zap.String("from", w.cfg.EmailFrom),
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}

func (w *NotificationWorker) sendWebhookStub(event events.Event) {
	if w.cfg.WebhookURL == "" {
		return
	}
	w.logger.Debug("webhook delivery stub",
		zap.String("url", w.cfg.WebhookURL),
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}
