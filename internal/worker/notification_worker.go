package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-relay/internal/events"
	"github.com/spec-kit/ticket-relay/internal/service"
)

// StartNotificationWorker delivers every dispatched event through
// notificationService in the background.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, logger *zap.Logger) *EventWorker {
	if dispatcher == nil || notificationService == nil {
		return nil
	}
	w := newEventWorker("notification", 128, notificationService.Deliver, logger)
	w.subscribe(dispatcher)
	return w
}
