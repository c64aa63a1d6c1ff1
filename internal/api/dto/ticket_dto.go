package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

// CreateTicketRequest payload. Price accepts a JSON number or string.
type CreateTicketRequest struct {
	EventID string           `json:"event_id"`
	Type    string           `json:"type"`
	Buyer   domain.BuyerInfo `json:"buyer"`
	Price   *decimal.Decimal `json:"price"`
}

// CancelTicketRequest payload.
type CancelTicketRequest struct {
	Reason string `json:"reason"`
}

// TicketResponse represents an issued ticket.
type TicketResponse struct {
	ID        string              `json:"id"`
	EventID   string              `json:"event_id"`
	Type      domain.TicketType   `json:"type"`
	TypeName  string              `json:"type_name"`
	Price     string              `json:"price"`
	IssuedAt  time.Time           `json:"issued_at"`
	Status    domain.TicketStatus `json:"status"`
	Buyer     domain.BuyerInfo    `json:"buyer"`
	QRPayload string              `json:"qr_payload"`
	Checksum  string              `json:"checksum"`
}

// TicketStatusResponse reports an authoritative status.
type TicketStatusResponse struct {
	TicketID string              `json:"ticket_id"`
	Status   domain.TicketStatus `json:"status"`
	UsedAt   *time.Time          `json:"used_at,omitempty"`
}

// TicketExportResponse is the printable form of a ticket.
type TicketExportResponse struct {
	Ticket    TicketResponse          `json:"ticket"`
	Formatted domain.TicketView       `json:"formatted"`
	Security  domain.SecurityFeatures `json:"security_features"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:        t.ID,
		EventID:   t.EventID,
		Type:      t.Type,
		TypeName:  t.Type.DisplayName(),
		Price:     t.Price.StringFixed(2),
		IssuedAt:  t.IssuedAt,
		Status:    t.Status,
		Buyer:     t.Buyer,
		QRPayload: t.QRPayload,
		Checksum:  t.Checksum,
	}
}

// NewTicketStatusResponse maps a status record.
func NewTicketStatusResponse(r *domain.TicketStatusRecord) TicketStatusResponse {
	return TicketStatusResponse{TicketID: r.TicketID, Status: r.Status, UsedAt: r.UsedAt}
}
