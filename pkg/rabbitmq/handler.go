package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"uptimer/pkg/apperror"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// LifecycleService reacts to monitor lifecycle changes made on the API side.
type LifecycleService interface {
	StartCreatedMonitor(ctx context.Context, id int) error
	ResumeMonitor(ctx context.Context, id int) error
	StopMonitor(ctx context.Context, name string, id int) error
	DeleteMonitor(ctx context.Context, id int) error
	StartSSLMonitor(ctx context.Context, id int) error
	ResumeSSLMonitor(ctx context.Context, id int) error
	StopSSLMonitor(ctx context.Context, name string, id int) error
}

type EventHandler struct {
	service LifecycleService
	logger  *zerolog.Logger
}

func NewEventHandler(svc LifecycleService, logger *zerolog.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		logger:  logger,
	}
}

func (h *EventHandler) Handle(ctx context.Context, msg amqp091.Delivery) error {
	var event EventPayload
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	var ref MonitorRef
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &ref); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
	}

	var err error
	switch event.Type {
	case EventMonitorCreated:
		err = h.service.StartCreatedMonitor(ctx, ref.ID)
	case EventMonitorResumed:
		err = h.service.ResumeMonitor(ctx, ref.ID)
	case EventMonitorStopped:
		err = h.service.StopMonitor(ctx, ref.Name, ref.ID)
	case EventMonitorDeleted:
		err = h.service.DeleteMonitor(ctx, ref.ID)
	case EventSSLCreated:
		err = h.service.StartSSLMonitor(ctx, ref.ID)
	case EventSSLResumed:
		err = h.service.ResumeSSLMonitor(ctx, ref.ID)
	case EventSSLStopped:
		err = h.service.StopSSLMonitor(ctx, ref.Name, ref.ID)
	default:
		h.logger.Debug().Str("event_id", event.ID).Str("type", event.Type).Msg("ignoring unknown event")
		return nil
	}

	// the monitor is already gone, a retry cannot succeed
	if apperror.IsKind(err, apperror.NotFound) {
		h.logger.Warn().Err(err).Str("event_id", event.ID).Str("type", event.Type).Int("monitor_id", ref.ID).Msg("event for missing monitor")
		return nil
	}
	return err
}
