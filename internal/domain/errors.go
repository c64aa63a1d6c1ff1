package domain

import "errors"

var (
	ErrInvalidTicketType = errors.New("invalid ticket type")
	ErrInvalidPrice      = errors.New("price must be non-negative")
	ErrMissingEventID    = errors.New("event id required")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrTicketUsed        = errors.New("ticket already used")
	ErrTicketNotAdmitted = errors.New("ticket not admissible")
	ErrOperatorInactive  = errors.New("operator inactive")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrStoreUnavailable  = errors.New("authoritative store not configured")
)
