package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/paraiso-astral/gate-service/internal/domain"
	"github.com/paraiso-astral/gate-service/internal/events"
	"github.com/paraiso-astral/gate-service/internal/repository"
	apperrors "github.com/paraiso-astral/gate-service/pkg/util/errorutil"
)

type mockOperators struct {
	mock.Mock
}

func (m *mockOperators) GetByID(ctx context.Context, id string) (*domain.Operator, error) {
	args := m.Called(ctx, id)
	op, _ := args.Get(0).(*domain.Operator)
	return op, args.Error(1)
}

func gateOperator() *domain.Operator {
	gate := "north"
	return &domain.Operator{ID: "op-1", Name: "Gate", Role: domain.OperatorRoleGate, GateID: &gate, Active: true}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	token, meta, err := tm.GenerateToken(gateOperator())
	require.NoError(t, err)
	assert.Equal(t, "op-1", meta.OperatorID)
	assert.WithinDuration(t, meta.IssuedAt.Add(15*time.Minute), meta.ExpiresAt, time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.Subject)
	assert.Equal(t, domain.OperatorRoleGate, claims.Role)
	assert.Equal(t, "north", claims.GateID)
	assert.Equal(t, meta.ID, claims.ID)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, _, err := tm.GenerateToken(gateOperator())
	require.NoError(t, err)

	_, err = NewTokenManager("other", 1).ParseToken(token)
	assert.Error(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "wrong horse"))

	_, err = HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func newProtectedApp(mw *AuthMiddleware, roles ...domain.OperatorRole) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	app.Get("/scan", mw.Handle, RequireRole(roles...), func(c *fiber.Ctx) error {
		actor := events.ActorFromContext(c.UserContext())
		return c.SendString(actor.OperatorID + "@" + actor.GateID)
	})
	return app
}

func TestAuthMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	ops := new(mockOperators)
	ops.On("GetByID", mock.Anything, "op-1").Return(gateOperator(), nil)
	mw := NewAuthMiddleware(tm, ops)

	token, _, err := tm.GenerateToken(gateOperator())
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		roles  []domain.OperatorRole
		status int
	}{
		{"missing header", "", []domain.OperatorRole{domain.OperatorRoleGate}, http.StatusUnauthorized},
		{"bad scheme", "Basic abc", []domain.OperatorRole{domain.OperatorRoleGate}, http.StatusUnauthorized},
		{"garbage token", "Bearer abc", []domain.OperatorRole{domain.OperatorRoleGate}, http.StatusUnauthorized},
		{"allowed role", "Bearer " + token, []domain.OperatorRole{domain.OperatorRoleGate}, http.StatusOK},
		{"wrong role", "Bearer " + token, []domain.OperatorRole{domain.OperatorRoleIssuer}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/scan", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := newProtectedApp(mw, tc.roles...).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestAuthMiddlewareRejectsUnknownAndInactiveOperators(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	ops := new(mockOperators)
	inactive := gateOperator()
	inactive.ID = "op-2"
	inactive.Active = false
	ops.On("GetByID", mock.Anything, "op-1").Return(nil, repository.ErrOperatorNotFound)
	ops.On("GetByID", mock.Anything, "op-2").Return(inactive, nil)
	app := newProtectedApp(NewAuthMiddleware(tm, ops), domain.OperatorRoleGate)

	for id, status := range map[string]int{"op-1": http.StatusUnauthorized, "op-2": http.StatusForbidden} {
		op := gateOperator()
		op.ID = id
		token, _, err := tm.GenerateToken(op)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/scan", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, id)
	}
}

func TestAdminPassesEveryRoleCheck(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	admin := &domain.Operator{ID: "op-9", Role: domain.OperatorRoleAdmin, Active: true}
	ops := new(mockOperators)
	ops.On("GetByID", mock.Anything, "op-9").Return(admin, nil)
	token, _, err := tm.GenerateToken(admin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/scan", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := newProtectedApp(NewAuthMiddleware(tm, ops), domain.OperatorRoleIssuer).Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
