package dto

import "time"

// ValidateRequest payload. Omitted flags take the pipeline defaults.
type ValidateRequest struct {
	Payload         string `json:"payload"`
	ForceOnline     *bool  `json:"force_online"`
	AllowOffline    *bool  `json:"allow_offline"`
	CheckBlacklist  *bool  `json:"check_blacklist"`
	CheckDuplicates *bool  `json:"check_duplicates"`
	SkipOnline      *bool  `json:"skip_online"`
}

// RevokeRequest payload.
type RevokeRequest struct {
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason"`
}

// RevokeResponse reports whether the revocation reached the shared store.
type RevokeResponse struct {
	TicketID  string `json:"ticket_id"`
	Revoked   bool   `json:"revoked"`
	Persisted bool   `json:"persisted"`
}

// BlacklistEntryResponse describes one revoked ticket.
type BlacklistEntryResponse struct {
	TicketID string    `json:"ticket_id"`
	Reason   string    `json:"reason"`
	AddedAt  time.Time `json:"added_at"`
}
