package domain

import "time"

// Operator is a box-office clerk, gate scanner or administrator account.
type Operator struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         OperatorRole
	GateID       *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
