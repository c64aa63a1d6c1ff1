package payload

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Checksum returns a short non-cryptographic integrity tag over the claim
// fields. It is an early filter for corrupted records, never a security check.
func Checksum(c Claims) string {
	d := xxhash.New()
	_, _ = d.WriteString(c.TicketID)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(c.EventID)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(string(c.Type))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(FormatTime(c.IssuedAt))
	return fmt.Sprintf("%08x", uint32(d.Sum64()>>32))
}

// MatchesChecksum reports whether sum is the checksum of c.
func MatchesChecksum(c Claims, sum string) bool {
	return Checksum(c) == sum
}
