package domain

import "time"

// OperatorRole enumerates what an authenticated operator may do.
type OperatorRole string

const (
	OperatorRoleIssuer OperatorRole = "ISSUER"
	OperatorRoleGate   OperatorRole = "GATE"
	OperatorRoleAdmin  OperatorRole = "ADMIN"
)

// Token represents issued operator access token metadata.
type Token struct {
	ID         string
	OperatorID string
	Role       OperatorRole
	ExpiresAt  time.Time
	IssuedAt   time.Time
}
