package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const temporaryTokenBytes = 20

// TemporaryToken is a single-use capability delivered by email. Only the
// digest is persisted; the raw value appears once, inside the mailed link.
type TemporaryToken struct {
	Raw       string
	Digest    string
	ExpiresAt time.Time
}

// NewTemporaryToken generates a random token and its storable digest.
func NewTemporaryToken(now time.Time, ttl time.Duration) (TemporaryToken, error) {
	if ttl <= 0 {
		return TemporaryToken{}, fmt.Errorf("token ttl must be positive")
	}

	buf := make([]byte, temporaryTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return TemporaryToken{}, fmt.Errorf("generate token: %w", err)
	}

	raw := hex.EncodeToString(buf)
	return TemporaryToken{
		Raw:       raw,
		Digest:    DigestToken(raw),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// DigestToken hashes a raw token the same way NewTemporaryToken does, so
// lookups can match an inbound raw token against the stored digest.
func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
