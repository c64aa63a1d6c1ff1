package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/paraiso-astral/gate-service/internal/events"
)

// AuditService writes every domain event to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{dispatcher: dispatcher, logger: logger.Named("audit")}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketIssued, a.handle)
	a.dispatcher.Subscribe(events.EventTicketRevoked, a.handle)
	a.dispatcher.Subscribe(events.EventTicketAdmitted, a.handle)
	a.dispatcher.Subscribe(events.EventTicketValidated, a.handleValidated)
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.fields(event)...)
	return nil
}

// rejected scans are operator relevant; admitted ones are only traced
func (a *AuditService) handleValidated(_ context.Context, event events.Event) error {
	if body, ok := event.Payload.(events.TicketValidatedPayload); ok && body.Valid {
		a.logger.Debug(string(event.Type), a.fields(event)...)
		return nil
	}
	a.logger.Info(string(event.Type), a.fields(event)...)
	return nil
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("operator_id", event.Actor.OperatorID),
		zap.String("gate_id", event.Actor.GateID),
		zap.Time("timestamp", event.Timestamp),
		zap.Any("payload", event.Payload),
	}
}
