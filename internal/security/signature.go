package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the shortest master secret accepted for signing.
	MinSecretLength = 32

	keyInfo = "gate-service/ticket-signature/v1"
)

// ErrWeakSecret is returned when the signing secret is missing or too short.
var ErrWeakSecret = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)

// Sign computes HMAC-SHA256 of payload under key and returns it hex encoded.
func Sign(payload, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC-SHA256 of payload under key.
// The MAC comparison runs in constant time.
func Verify(payload []byte, signature string, key []byte) bool {
	got, err := hex.DecodeString(signature)
	if err != nil || len(got) != sha256.Size {
		return false
	}
	// only the lowercase form is canonical
	if hex.EncodeToString(got) != signature {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

// Engine signs and verifies canonical ticket claims with a key derived from a
// master secret. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	key []byte
}

// NewEngine derives the signing key from secret. A missing or short secret is
// a configuration error; there is no unkeyed fallback.
func NewEngine(secret []byte) (*Engine, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, errors.Join(errors.New("derive signing key"), err)
	}
	return &Engine{key: key}, nil
}

// Sign returns the hex signature of payload.
func (e *Engine) Sign(payload []byte) string {
	return Sign(payload, e.key)
}

// Verify reports whether signature matches payload.
func (e *Engine) Verify(payload []byte, signature string) bool {
	if e == nil {
		return false
	}
	return Verify(payload, signature, e.key)
}
