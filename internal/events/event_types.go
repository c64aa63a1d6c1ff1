package events

import (
	"time"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketIssued    EventType = "ticket_issued"
	EventTicketValidated EventType = "ticket_validated"
	EventTicketRevoked   EventType = "ticket_revoked"
	EventTicketAdmitted  EventType = "ticket_admitted"
)

// AllEventTypes lists every event the service emits.
var AllEventTypes = []EventType{EventTicketIssued, EventTicketValidated, EventTicketRevoked, EventTicketAdmitted}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	OperatorID string              `json:"operator_id,omitempty"`
	Role       domain.OperatorRole `json:"role,omitempty"`
	GateID     string              `json:"gate_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketIssuedPayload payload.
type TicketIssuedPayload struct {
	EventID string            `json:"event_id"`
	Type    domain.TicketType `json:"type"`
	Price   string            `json:"price"`
}

// TicketValidatedPayload payload.
type TicketValidatedPayload struct {
	Valid  bool                    `json:"valid"`
	Reason domain.Reason           `json:"reason,omitempty"`
	Method domain.ValidationMethod `json:"method"`
	Cached bool                    `json:"cached"`
}

// TicketRevokedPayload payload.
type TicketRevokedPayload struct {
	Reason    string `json:"reason"`
	Persisted bool   `json:"persisted"`
}

// TicketAdmittedPayload payload.
type TicketAdmittedPayload struct {
	UsedAt time.Time `json:"used_at"`
}
