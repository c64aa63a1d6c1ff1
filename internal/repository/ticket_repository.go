package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	EventID  string
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// TicketRepository is the authoritative store for issued tickets. It owns
// every status transition.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	GetStatus(ctx context.Context, id string) (*domain.TicketStatusRecord, error)
	MarkUsed(ctx context.Context, id string) (*domain.TicketStatusRecord, error)
	Cancel(ctx context.Context, id string) (*domain.TicketStatusRecord, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, event_id, type, price::text, status, buyer_name, buyer_email, buyer_phone,
               qr_payload, checksum, issued_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, event_id, type, price, status, buyer_name, buyer_email, buyer_phone, qr_payload, checksum, issued_at)
        VALUES ($1,$2,$3,$4::numeric,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.EventID,
		ticket.Type,
		ticket.Price.String(),
		ticket.Status,
		ticket.Buyer.Name,
		ticket.Buyer.Email,
		ticket.Buyer.Phone,
		ticket.QRPayload,
		ticket.Checksum,
		ticket.IssuedAt,
	)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTicketNotFound
	}
	return ticket, err
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{}
	clauses := ""
	if filter.EventID != "" {
		args = append(args, filter.EventID)
		clauses = fmt.Sprintf(" WHERE event_id=$%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		if clauses == "" {
			clauses = " WHERE"
		} else {
			clauses += " AND"
		}
		clauses += fmt.Sprintf(" status = ANY($%d)", len(args))
	}
	query += clauses + " ORDER BY issued_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) GetStatus(ctx context.Context, id string) (*domain.TicketStatusRecord, error) {
	const query = `SELECT id, status, used_at FROM tickets WHERE id=$1`
	return scanStatus(r.pool.QueryRow(ctx, query, id))
}

// MarkUsed performs the single-use transition. Repeating it for a used ticket
// returns the stored record together with domain.ErrTicketUsed.
func (r *ticketRepository) MarkUsed(ctx context.Context, id string) (*domain.TicketStatusRecord, error) {
	const query = `
        UPDATE tickets SET status='USED', used_at=NOW(), updated_at=NOW()
        WHERE id=$1 AND status='VALID'
        RETURNING id, status, used_at`
	record, err := scanStatus(r.pool.QueryRow(ctx, query, id))
	if !errors.Is(err, domain.ErrTicketNotFound) {
		return record, err
	}
	return r.transitionRejected(ctx, id)
}

// Cancel voids a ticket that has not been used.
func (r *ticketRepository) Cancel(ctx context.Context, id string) (*domain.TicketStatusRecord, error) {
	const query = `
        UPDATE tickets SET status='CANCELLED', updated_at=NOW()
        WHERE id=$1 AND status IN ('VALID', 'CANCELLED')
        RETURNING id, status, used_at`
	record, err := scanStatus(r.pool.QueryRow(ctx, query, id))
	if !errors.Is(err, domain.ErrTicketNotFound) {
		return record, err
	}
	return r.transitionRejected(ctx, id)
}

// transitionRejected explains why a conditional update matched no row.
func (r *ticketRepository) transitionRejected(ctx context.Context, id string) (*domain.TicketStatusRecord, error) {
	record, err := r.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status == domain.TicketStatusUsed {
		return record, domain.ErrTicketUsed
	}
	return record, fmt.Errorf("%w: status %s", domain.ErrTicketNotAdmitted, record.Status)
}

func scanStatus(row pgx.Row) (*domain.TicketStatusRecord, error) {
	var (
		record domain.TicketStatusRecord
		usedAt *time.Time
	)
	if err := row.Scan(&record.TicketID, &record.Status, &usedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	if usedAt != nil {
		utc := usedAt.UTC()
		record.UsedAt = &utc
	}
	return &record, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		price  string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.EventID,
		&ticket.Type,
		&price,
		&ticket.Status,
		&ticket.Buyer.Name,
		&ticket.Buyer.Email,
		&ticket.Buyer.Phone,
		&ticket.QRPayload,
		&ticket.Checksum,
		&ticket.IssuedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	ticket.Price = parsed
	ticket.IssuedAt = ticket.IssuedAt.UTC()
	return &ticket, nil
}
