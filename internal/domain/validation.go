package domain

import "time"

// Reason is the typed outcome code of a validation or issuance failure.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonInvalidTicketType     Reason = "INVALID_TICKET_TYPE"
	ReasonMalformedPayload      Reason = "MALFORMED_PAYLOAD"
	ReasonUnsupportedVersion    Reason = "UNSUPPORTED_VERSION"
	ReasonUntrustedIssuer       Reason = "UNTRUSTED_ISSUER"
	ReasonInvalidType           Reason = "INVALID_TYPE"
	ReasonExpired               Reason = "EXPIRED"
	ReasonSignatureInvalid      Reason = "SIGNATURE_INVALID"
	ReasonRevoked               Reason = "REVOKED"
	ReasonDuplicate             Reason = "DUPLICATE"
	ReasonAlreadyUsed           Reason = "ALREADY_USED"
	ReasonCancelled             Reason = "CANCELLED"
	ReasonUnknownTicket         Reason = "UNKNOWN_TICKET"
	ReasonValidationUnavailable Reason = "VALIDATION_UNAVAILABLE"
)

// Deterministic reports whether the outcome depends only on the payload, the
// signing key and the clock, and may therefore be memoized.
func (r Reason) Deterministic() bool {
	switch r {
	case ReasonNone, ReasonUnsupportedVersion, ReasonUntrustedIssuer, ReasonInvalidType,
		ReasonExpired, ReasonSignatureInvalid:
		return true
	}
	return false
}

// Message returns a short operator-facing description.
func (r Reason) Message() string {
	switch r {
	case ReasonNone:
		return "ticket valid"
	case ReasonInvalidTicketType:
		return "invalid ticket type"
	case ReasonMalformedPayload:
		return "malformed ticket payload"
	case ReasonUnsupportedVersion:
		return "unsupported ticket version"
	case ReasonUntrustedIssuer:
		return "untrusted issuer"
	case ReasonInvalidType:
		return "invalid ticket type"
	case ReasonExpired:
		return "ticket expired"
	case ReasonSignatureInvalid:
		return "invalid signature"
	case ReasonRevoked:
		return "ticket revoked"
	case ReasonDuplicate:
		return "ticket scanned moments ago"
	case ReasonAlreadyUsed:
		return "ticket already used"
	case ReasonCancelled:
		return "ticket cancelled"
	case ReasonUnknownTicket:
		return "ticket unknown to the box office"
	case ReasonValidationUnavailable:
		return "online validation unavailable"
	}
	return string(r)
}

// ValidationMethod records whether the authoritative store confirmed a verdict.
type ValidationMethod string

const (
	MethodOffline ValidationMethod = "offline"
	MethodOnline  ValidationMethod = "online"
)

// ValidationResult is the immutable outcome of one gate scan.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Reason    Reason           `json:"error,omitempty"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Method    ValidationMethod `json:"method"`
	TicketID  string           `json:"ticket_id,omitempty"`
	EventID   string           `json:"event_id,omitempty"`
	Type      TicketType       `json:"type,omitempty"`
	Cached    bool             `json:"cached"`
}

// HistoryEntry is one recorded validation attempt for a ticket.
type HistoryEntry struct {
	Timestamp time.Time        `json:"timestamp"`
	Valid     bool             `json:"valid"`
	Method    ValidationMethod `json:"method"`
	Reason    Reason           `json:"error,omitempty"`
}

// ValidationStats summarizes recorded validation attempts.
type ValidationStats struct {
	Total       int    `json:"total"`
	Successful  int    `json:"successful"`
	SuccessRate string `json:"success_rate"`
	Online      int    `json:"online"`
	Offline     int    `json:"offline"`
	CacheSize   int    `json:"cache_size"`
}
