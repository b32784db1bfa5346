package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// sessionTokenBytes yields a 64-character hex token (256 bits of entropy).
	sessionTokenBytes = 32
	// csrfTokenBytes yields a 32-character hex token (128 bits of entropy).
	csrfTokenBytes = 16
)

// newSessionToken returns a 64-hex-character token from the OS CSPRNG.
func newSessionToken() (string, error) {
	return randomHex(sessionTokenBytes)
}

// newCSRFToken returns a 32-hex-character token from the OS CSPRNG. It is
// generated independently of the session token, so neither is derivable
// from the other.
func newCSRFToken() (string, error) {
	return randomHex(csrfTokenBytes)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
