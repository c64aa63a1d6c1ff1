package dto

import (
	"time"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Operator    OperatorResponse `json:"operator"`
}

// CreateOperatorRequest payload.
type CreateOperatorRequest struct {
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Password string              `json:"password"`
	Role     domain.OperatorRole `json:"role"`
	GateID   *string             `json:"gate_id"`
}

// SetOperatorActiveRequest payload.
type SetOperatorActiveRequest struct {
	Active bool `json:"active"`
}

// OperatorResponse omits credentials.
type OperatorResponse struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Email  string              `json:"email"`
	Role   domain.OperatorRole `json:"role"`
	GateID *string             `json:"gate_id,omitempty"`
	Active bool                `json:"active"`
}

// NewOperatorResponse maps a domain operator.
func NewOperatorResponse(o *domain.Operator) OperatorResponse {
	return OperatorResponse{ID: o.ID, Name: o.Name, Email: o.Email, Role: o.Role, GateID: o.GateID, Active: o.Active}
}
