package payload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paraiso-astral/gate-service/internal/domain"
)

const (
	// Version is the payload format emitted by this service.
	Version = "1.0"
	// DefaultIssuer is the issuer constant stamped into every payload.
	DefaultIssuer = "paraiso-astral"

	// TimeLayout is the canonical ISO-8601 form of issuedAt (UTC, milliseconds).
	TimeLayout = "2006-01-02T15:04:05.000Z07:00"

	maxEncodedLength = 4096
)

// Claims are the signed fields of a ticket payload.
type Claims struct {
	TicketID string
	EventID  string
	Type     domain.TicketType
	IssuedAt time.Time
	Version  string
	Issuer   string
}

// Payload is a decoded QR payload: claims plus their signature.
type Payload struct {
	Claims
	Signature string
}

// Error is a typed decoding failure. Decoding never panics on garbage input.
type Error struct {
	Reason domain.Reason
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func malformed(format string, args ...any) *Error {
	return &Error{Reason: domain.ReasonMalformedPayload, Detail: fmt.Sprintf(format, args...)}
}

// field order here is the canonical order
type wireClaims struct {
	TicketID string `json:"ticketId"`
	EventID  string `json:"eventId"`
	Type     string `json:"type"`
	IssuedAt string `json:"issuedAt"`
	Version  string `json:"version"`
	Issuer   string `json:"issuer"`
}

type wirePayload struct {
	TicketID  string `json:"ticketId"`
	EventID   string `json:"eventId"`
	Type      string `json:"type"`
	IssuedAt  string `json:"issuedAt"`
	Version   string `json:"version"`
	Issuer    string `json:"issuer"`
	Signature string `json:"signature"`
}

// Codec encodes and decodes transport payloads for one trusted issuer.
type Codec struct {
	issuer   string
	versions map[string]struct{}
}

// New builds a codec accepting the given issuer and versions. With no
// versions supplied only Version is accepted.
func New(issuer string, versions ...string) *Codec {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if len(versions) == 0 {
		versions = []string{Version}
	}
	set := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		set[v] = struct{}{}
	}
	return &Codec{issuer: issuer, versions: set}
}

// Issuer returns the issuer constant this codec stamps and expects.
func (c *Codec) Issuer() string {
	return c.issuer
}

// FormatTime renders t in the canonical issuedAt layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Canonical returns the deterministic byte form of claims that is signed.
func Canonical(c Claims) []byte {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// encoding a struct of strings cannot fail
	_ = enc.Encode(wireClaims{
		TicketID: c.TicketID,
		EventID:  c.EventID,
		Type:     string(c.Type),
		IssuedAt: FormatTime(c.IssuedAt),
		Version:  c.Version,
		Issuer:   c.Issuer,
	})
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Encode renders p as base64 of its canonical JSON object.
func (c *Codec) Encode(p Payload) (string, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wirePayload{
		TicketID:  p.TicketID,
		EventID:   p.EventID,
		Type:      string(p.Type),
		IssuedAt:  FormatTime(p.IssuedAt),
		Version:   p.Version,
		Issuer:    p.Issuer,
		Signature: p.Signature,
	}); err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Parse performs the structural decode only: transport encoding, JSON shape
// and timestamp syntax. Allow-list checks are left to Check.
func (c *Codec) Parse(encoded string) (*Payload, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, malformed("empty payload")
	}
	if len(encoded) > maxEncodedLength {
		return nil, malformed("payload exceeds %d bytes", maxEncodedLength)
	}
	raw, err := base64.StdEncoding.Strict().DecodeString(encoded)
	if err != nil {
		return nil, malformed("invalid base64")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var wire wirePayload
	if err := dec.Decode(&wire); err != nil {
		return nil, malformed("invalid json object")
	}
	if dec.More() {
		return nil, malformed("trailing data")
	}

	p := &Payload{
		Claims: Claims{
			TicketID: wire.TicketID,
			EventID:  wire.EventID,
			Type:     domain.TicketType(wire.Type),
			Version:  wire.Version,
			Issuer:   wire.Issuer,
		},
		Signature: wire.Signature,
	}
	if wire.IssuedAt != "" {
		issuedAt, err := time.Parse(time.RFC3339Nano, wire.IssuedAt)
		if err != nil {
			return nil, malformed("invalid issuedAt")
		}
		// the signature covers the canonical rendering, so any other spelling
		// of the same instant is rejected
		if FormatTime(issuedAt) != wire.IssuedAt {
			return nil, malformed("non-canonical issuedAt")
		}
		p.IssuedAt = issuedAt.UTC()
	}
	return p, nil
}

// Check applies the ordered structural checks: required fields, supported
// version, then trusted issuer.
func (c *Codec) Check(p *Payload) error {
	switch {
	case p == nil:
		return malformed("nil payload")
	case p.TicketID == "":
		return malformed("missing ticketId")
	case p.EventID == "":
		return malformed("missing eventId")
	case p.Type == "":
		return malformed("missing type")
	case p.IssuedAt.IsZero():
		return malformed("missing issuedAt")
	case p.Signature == "":
		return malformed("missing signature")
	}
	if _, ok := c.versions[p.Version]; !ok {
		return &Error{Reason: domain.ReasonUnsupportedVersion, Detail: fmt.Sprintf("version %q", p.Version)}
	}
	if p.Issuer != c.issuer {
		return &Error{Reason: domain.ReasonUntrustedIssuer, Detail: fmt.Sprintf("issuer %q", p.Issuer)}
	}
	return nil
}

// Decode parses and checks an encoded payload.
func (c *Codec) Decode(encoded string) (*Payload, error) {
	p, err := c.Parse(encoded)
	if err != nil {
		return nil, err
	}
	if err := c.Check(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReasonOf extracts the typed reason from a codec error.
func ReasonOf(err error) domain.Reason {
	if err == nil {
		return domain.ReasonNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return domain.ReasonMalformedPayload
}
