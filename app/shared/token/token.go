package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// New returns an opaque, unguessable URL-safe token of n random bytes.
func New(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
