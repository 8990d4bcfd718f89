package internal

import (
	"crypto/rand"
	"fmt"
)

// use Base58 (like Bitcoin) so codes survive retyping: no 0/O or I/l
const (
	alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	// ShortCodeLength gives ~47 bits of randomness, enough that codes
	// cannot be enumerated by walking a sequence.
	ShortCodeLength = 8
)

// NewShortCode returns a random base58 token for embedding in QR URLs.
// Codes must be unguessable, so they are drawn from crypto/rand rather
// than derived from a database id.
func NewShortCode() (string, error) {
	buf := make([]byte, ShortCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	out := make([]byte, ShortCodeLength)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}

	return string(out), nil
}
