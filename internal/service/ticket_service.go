package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/paraiso-astral/gate-service/internal/domain"
	"github.com/paraiso-astral/gate-service/internal/events"
	"github.com/paraiso-astral/gate-service/internal/observability"
	"github.com/paraiso-astral/gate-service/internal/repository"
)

// TicketService coordinates issuance workflows: minting, persisting and
// announcing tickets.
type TicketService struct {
	issuer     *TicketIssuer
	tickets    repository.TicketRepository
	pipeline   *ValidationPipeline
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	Issuer     *TicketIssuer
	TicketRepo repository.TicketRepository
	// Pipeline receives revocations for cancelled tickets. Optional.
	Pipeline   *ValidationPipeline
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	EventID string
	Type    domain.TicketType
	Buyer   domain.BuyerInfo
	Price   decimal.Decimal
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		issuer:     deps.Issuer,
		tickets:    deps.TicketRepo,
		pipeline:   deps.Pipeline,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// IssueTicket mints a ticket and records it in the authoritative store.
func (s *TicketService) IssueTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	ticket, err := s.issuer.CreateTicket(input.EventID, input.Type, input.Buyer, input.Price)
	if err != nil {
		return nil, err
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordIssued(ticket.Type)
	s.logger.Info("ticket issued",
		zap.String("ticket_id", ticket.ID),
		zap.String("event_id", ticket.EventID),
		zap.String("type", string(ticket.Type)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketIssued,
		TicketID: ticket.ID,
		Payload: events.TicketIssuedPayload{
			EventID: ticket.EventID,
			Type:    ticket.Type,
			Price:   ticket.Price.StringFixed(2),
		},
	})
	return ticket, nil
}

// GetTicket loads a ticket with its current status.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, id)
}

// ListTickets returns tickets for an event.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, filter)
}

// ExportTicket returns the printable representation of a stored ticket.
func (s *TicketService) ExportTicket(ctx context.Context, id string) (*domain.TicketExport, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.issuer.Export(ticket)
}

// CancelTicket voids a ticket in the store and revokes it at the gates.
func (s *TicketService) CancelTicket(ctx context.Context, id, reason string) (*domain.TicketStatusRecord, error) {
	record, err := s.tickets.Cancel(ctx, id)
	if err != nil {
		return record, err
	}
	if s.pipeline != nil {
		if err := s.pipeline.Revoke(ctx, id, reason); err != nil {
			s.logger.Warn("revocation not persisted", zap.String("ticket_id", id), zap.Error(err))
		}
	}
	return record, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Actor = events.ActorFromContext(ctx)
	event.Timestamp = time.Now().UTC()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
