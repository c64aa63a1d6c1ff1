//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/paraiso-astral/gate-service/internal/domain"
	"github.com/paraiso-astral/gate-service/internal/persistence"
	"github.com/paraiso-astral/gate-service/migrations"
)

type TicketRepositorySuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	tickets   TicketRepository
	operators OperatorRepository
}

func TestTicketRepositorySuite(t *testing.T) {
	suite.Run(t, new(TicketRepositorySuite))
}

func (s *TicketRepositorySuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("gate"),
		tcpostgres.WithUsername("gate"),
		tcpostgres.WithPassword("gate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.pool, err = pgxpool.New(ctx, dsn)
	s.Require().NoError(err)
	s.Require().NoError(persistence.RunMigrations(ctx, s.pool, migrations.FS, zap.NewNop()))

	s.tickets = NewTicketRepository(s.pool)
	s.operators = NewOperatorRepository(s.pool)
}

func (s *TicketRepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *TicketRepositorySuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE tickets, operators`)
	s.Require().NoError(err)
}

func (s *TicketRepositorySuite) newTicket(id string) *domain.Ticket {
	return &domain.Ticket{
		ID:        id,
		EventID:   "evt-1",
		Type:      domain.TicketTypeVIP,
		Price:     decimal.RequireFromString("120.50"),
		IssuedAt:  time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC),
		Status:    domain.TicketStatusValid,
		Buyer:     domain.BuyerInfo{Name: "Ana", Email: "ana@example.com"},
		QRPayload: "payload",
		Checksum:  "abcd1234",
	}
}

func (s *TicketRepositorySuite) TestCreateAndGet() {
	ctx := context.Background()
	s.Require().NoError(s.tickets.Create(ctx, s.newTicket("t-1")))

	got, err := s.tickets.GetByID(ctx, "t-1")
	s.Require().NoError(err)
	s.Equal(domain.TicketTypeVIP, got.Type)
	s.True(got.Price.Equal(decimal.RequireFromString("120.5")))
	s.Equal("Ana", got.Buyer.Name)
	s.Equal(time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC), got.IssuedAt)

	_, err = s.tickets.GetByID(ctx, "missing")
	s.ErrorIs(err, domain.ErrTicketNotFound)
}

func (s *TicketRepositorySuite) TestMarkUsedIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.tickets.Create(ctx, s.newTicket("t-1")))

	first, err := s.tickets.MarkUsed(ctx, "t-1")
	s.Require().NoError(err)
	s.Equal(domain.TicketStatusUsed, first.Status)
	s.Require().NotNil(first.UsedAt)

	second, err := s.tickets.MarkUsed(ctx, "t-1")
	s.ErrorIs(err, domain.ErrTicketUsed)
	s.Require().NotNil(second)
	s.Equal(first.UsedAt.Unix(), second.UsedAt.Unix())

	_, err = s.tickets.MarkUsed(ctx, "missing")
	s.ErrorIs(err, domain.ErrTicketNotFound)
}

func (s *TicketRepositorySuite) TestCancelBlocksAdmission() {
	ctx := context.Background()
	s.Require().NoError(s.tickets.Create(ctx, s.newTicket("t-1")))

	record, err := s.tickets.Cancel(ctx, "t-1")
	s.Require().NoError(err)
	s.Equal(domain.TicketStatusCancelled, record.Status)

	_, err = s.tickets.MarkUsed(ctx, "t-1")
	s.ErrorIs(err, domain.ErrTicketNotAdmitted)

	status, err := s.tickets.GetStatus(ctx, "t-1")
	s.Require().NoError(err)
	s.Equal(domain.TicketStatusCancelled, status.Status)
}

func (s *TicketRepositorySuite) TestListByEvent() {
	ctx := context.Background()
	for _, id := range []string{"t-1", "t-2"} {
		s.Require().NoError(s.tickets.Create(ctx, s.newTicket(id)))
	}
	other := s.newTicket("t-3")
	other.EventID = "evt-2"
	s.Require().NoError(s.tickets.Create(ctx, other))

	list, err := s.tickets.List(ctx, TicketFilter{EventID: "evt-1", Statuses: []domain.TicketStatus{domain.TicketStatusValid}})
	s.Require().NoError(err)
	s.Len(list, 2)
}

func (s *TicketRepositorySuite) TestOperatorLifecycle() {
	ctx := context.Background()
	gate := "north"
	op := &domain.Operator{Name: "Gate 1", Email: "gate1@example.com", PasswordHash: "x", Role: domain.OperatorRoleGate, GateID: &gate, Active: true}
	s.Require().NoError(s.operators.Create(ctx, op))
	s.NotEmpty(op.ID)

	got, err := s.operators.GetByEmail(ctx, "gate1@example.com")
	s.Require().NoError(err)
	s.Equal(domain.OperatorRoleGate, got.Role)
	require.NotNil(s.T(), got.GateID)
	assert.Equal(s.T(), "north", *got.GateID)

	s.Require().NoError(s.operators.SetActive(ctx, op.ID, false))
	got, err = s.operators.GetByID(ctx, op.ID)
	s.Require().NoError(err)
	s.False(got.Active)

	_, err = s.operators.GetByEmail(ctx, "nobody@example.com")
	s.ErrorIs(err, ErrOperatorNotFound)
}
