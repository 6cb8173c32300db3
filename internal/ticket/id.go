// Package ticket issues the human-readable ticket identifiers and the QR
// credentials attached to confirmed registrations.
package ticket

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"felicityevents/internal/domain"
)

// Ticket ids look like FELMJ3K2V8Q1XZ: the FEL prefix, the issue time in
// base36 milliseconds, and 4 random base36 characters, all upper-case. The
// format round-trips through manual entry at the door.
const (
	idPrefix      = "FEL"
	randomLength  = 4
	maxIDAttempts = 5
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ExistsFunc reports whether a ticket id is already taken. The check is
// advisory: the storage layer's unique index stays authoritative.
type ExistsFunc func(ctx context.Context, ticketID string) (bool, error)

// Generate produces a ticket id that did not exist at check time, retrying
// a bounded number of times on collision.
func Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := NewID(time.Now())
		if err != nil {
			return "", fmt.Errorf("generate ticket id: %w", err)
		}
		taken, err := exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check ticket id: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate ticket id: %w", domain.ErrTicketIDConflict)
}

// NewID builds a single candidate id for the given issue time.
func NewID(now time.Time) (string, error) {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	suffix, err := randomBase36(randomLength)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(idPrefix + ts + suffix), nil
}

// Normalize prepares a manually entered ticket id for lookup.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func randomBase36(n int) (string, error) {
	max := big.NewInt(int64(len(base36Alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = base36Alphabet[idx.Int64()]
	}
	return string(b), nil
}
