package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketType enumerates the price tiers a ticket can be issued for.
type TicketType string

const (
	TicketTypeGeneral   TicketType = "general"
	TicketTypeVIP       TicketType = "vip"
	TicketTypeBackstage TicketType = "backstage"
)

// TicketTypes lists every supported tier in display order.
var TicketTypes = []TicketType{TicketTypeGeneral, TicketTypeVIP, TicketTypeBackstage}

// Valid reports whether t is a known tier.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeGeneral, TicketTypeVIP, TicketTypeBackstage:
		return true
	}
	return false
}

// DisplayName returns the human label printed on tickets.
func (t TicketType) DisplayName() string {
	switch t {
	case TicketTypeGeneral:
		return "General"
	case TicketTypeVIP:
		return "VIP"
	case TicketTypeBackstage:
		return "Backstage"
	}
	return string(t)
}

// TicketStatus enumerates lifecycle states. Transitions are owned by the
// authoritative store; validators only read them.
type TicketStatus string

const (
	TicketStatusValid     TicketStatus = "VALID"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusExpired   TicketStatus = "EXPIRED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// BuyerInfo is optional contact data captured at purchase.
type BuyerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Ticket is an issued admission token. It is never mutated after issuance.
type Ticket struct {
	ID        string
	EventID   string
	Type      TicketType
	Price     decimal.Decimal
	IssuedAt  time.Time
	Status    TicketStatus
	Buyer     BuyerInfo
	QRPayload string
	Checksum  string
}

// TicketStatusRecord is what the authoritative store reports for a ticket.
type TicketStatusRecord struct {
	TicketID string
	Status   TicketStatus
	UsedAt   *time.Time
}

// SecurityFeatures is printed anti-counterfeiting metadata. It is never
// consulted during digital verification.
type SecurityFeatures struct {
	HologramID   string `json:"hologram_id"`
	Watermark    string `json:"watermark"`
	SerialNumber string `json:"serial_number"`
	BatchNumber  string `json:"batch_number"`
}

// TicketView is the formatted representation used for printing and export.
type TicketView struct {
	TicketID   string     `json:"ticket_id"`
	EventID    string     `json:"event_id"`
	Type       TicketType `json:"type"`
	TypeName   string     `json:"type_name"`
	Price      string     `json:"price"`
	BuyerName  string     `json:"buyer_name"`
	BuyerEmail string     `json:"buyer_email"`
	IssuedAt   time.Time  `json:"issued_at"`
	Status     string     `json:"status"`
	QRPayload  string     `json:"qr_payload"`
}

// TicketExport bundles a ticket with its printable view and security features.
type TicketExport struct {
	Ticket    *Ticket
	Formatted TicketView
	Security  SecurityFeatures
}
