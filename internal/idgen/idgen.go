// Package idgen produces short opaque identifiers for trips, days and spots.
//
// Identifiers only need to be unique within one user's local data; they are
// not security tokens and carry no ordering.
package idgen

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Length is the number of characters in a generated identifier.
const Length = 9

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generator returns a fresh identifier on every call.
type Generator func() string

// New returns a random lowercase alphanumeric identifier of Length characters.
// The randomness comes from a version 4 UUID, re-encoded in base 36.
func New() string {
	u := uuid.New()
	var b strings.Builder
	b.Grow(Length)
	// Each byte of the UUID yields one character. Bytes 6 and 8 carry the
	// version and variant bits, so they are skipped.
	for i := 0; i < len(u) && b.Len() < Length; i++ {
		if i == 6 || i == 8 {
			continue
		}
		b.WriteByte(alphabet[int(u[i])%len(alphabet)])
	}
	return b.String()
}

// Sequence returns a deterministic Generator yielding prefix-1, prefix-2, ...
// It is meant for tests and fixtures.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

