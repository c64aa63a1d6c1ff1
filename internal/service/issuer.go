package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paraiso-astral/gate-service/internal/domain"
	"github.com/paraiso-astral/gate-service/internal/payload"
	"github.com/paraiso-astral/gate-service/internal/security"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// TicketIssuer mints signed tickets. It holds the signing engine and must
// only run inside the trusted issuance service.
type TicketIssuer struct {
	codec        *payload.Codec
	engine       *security.Engine
	serialPrefix string
	now          func() time.Time
	random       io.Reader
}

// IssuerOption configures a TicketIssuer.
type IssuerOption func(*TicketIssuer)

// WithIssuerClock overrides the time source.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *TicketIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// WithRandomSource overrides the source used for ids and security features.
func WithRandomSource(r io.Reader) IssuerOption {
	return func(i *TicketIssuer) {
		if r != nil {
			i.random = r
		}
	}
}

// NewTicketIssuer builds an issuer.
func NewTicketIssuer(codec *payload.Codec, engine *security.Engine, serialPrefix string, opts ...IssuerOption) *TicketIssuer {
	if serialPrefix == "" {
		serialPrefix = "PA"
	}
	i := &TicketIssuer{
		codec:        codec,
		engine:       engine,
		serialPrefix: serialPrefix,
		now:          time.Now,
		random:       rand.Reader,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// ParseTicketType normalizes a caller supplied tier name.
func ParseTicketType(raw string) (domain.TicketType, error) {
	t := domain.TicketType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTicketType, raw)
	}
	return t, nil
}

// CreateTicket issues a new ticket with a signed payload. Unknown types and
// negative prices are programmer errors and fail hard.
func (i *TicketIssuer) CreateTicket(eventID string, ticketType domain.TicketType, buyer domain.BuyerInfo, price decimal.Decimal) (*domain.Ticket, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, domain.ErrMissingEventID
	}
	ticketType, err := ParseTicketType(string(ticketType))
	if err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPrice, price)
	}

	id, err := uuid.NewRandomFromReader(i.random)
	if err != nil {
		return nil, fmt.Errorf("generate ticket id: %w", err)
	}
	// truncate so the signed timestamp equals its millisecond wire form
	issuedAt := i.now().UTC().Truncate(time.Millisecond)

	claims := payload.Claims{
		TicketID: id.String(),
		EventID:  eventID,
		Type:     ticketType,
		IssuedAt: issuedAt,
		Version:  payload.Version,
		Issuer:   i.codec.Issuer(),
	}
	encoded, err := i.codec.Encode(payload.Payload{
		Claims:    claims,
		Signature: i.engine.Sign(payload.Canonical(claims)),
	})
	if err != nil {
		return nil, err
	}

	return &domain.Ticket{
		ID:        claims.TicketID,
		EventID:   eventID,
		Type:      ticketType,
		Price:     price,
		IssuedAt:  issuedAt,
		Status:    domain.TicketStatusValid,
		Buyer:     buyer,
		QRPayload: encoded,
		Checksum:  payload.Checksum(claims),
	}, nil
}

// GenerateSecurityFeatures derives printed anti-counterfeiting metadata. The
// serial year and batch week follow the ticket's issue date.
func (i *TicketIssuer) GenerateSecurityFeatures(ticket *domain.Ticket) (domain.SecurityFeatures, error) {
	if ticket == nil {
		return domain.SecurityFeatures{}, domain.ErrTicketNotFound
	}
	hologram, err := i.randomBase36(9)
	if err != nil {
		return domain.SecurityFeatures{}, err
	}
	serial, err := i.randomBase36(8)
	if err != nil {
		return domain.SecurityFeatures{}, err
	}
	issued := ticket.IssuedAt.UTC()
	year, week := issued.ISOWeek()
	return domain.SecurityFeatures{
		HologramID:   "HG-" + hologram,
		Watermark:    Watermark(ticket.ID),
		SerialNumber: fmt.Sprintf("%s-%d-%s", i.serialPrefix, issued.Year(), serial),
		BatchNumber:  fmt.Sprintf("B%dW%02d", year, week),
	}, nil
}

// Export bundles a ticket with its printable view and security features.
func (i *TicketIssuer) Export(ticket *domain.Ticket) (*domain.TicketExport, error) {
	features, err := i.GenerateSecurityFeatures(ticket)
	if err != nil {
		return nil, err
	}
	return &domain.TicketExport{
		Ticket: ticket,
		Formatted: domain.TicketView{
			TicketID:   ticket.ID,
			EventID:    ticket.EventID,
			Type:       ticket.Type,
			TypeName:   ticket.Type.DisplayName(),
			Price:      ticket.Price.StringFixed(2),
			BuyerName:  ticket.Buyer.Name,
			BuyerEmail: ticket.Buyer.Email,
			IssuedAt:   ticket.IssuedAt,
			Status:     string(ticket.Status),
			QRPayload:  ticket.QRPayload,
		},
		Security: features,
	}, nil
}

// Watermark is a short non-cryptographic fingerprint of a ticket id.
func Watermark(ticketID string) string {
	return fmt.Sprintf("%016X", xxhash.Sum64String(ticketID))[:12]
}

// randomBase36 draws n uniform base36 characters, rejecting bytes that
// would bias the distribution.
func (i *TicketIssuer) randomBase36(n int) (string, error) {
	const limit = 252 // largest multiple of 36 below 256
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := io.ReadFull(i.random, buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, base36Alphabet[int(b)%36])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
