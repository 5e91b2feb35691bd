package appointment

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
)

// randomToken returns a URL-safe random token of n raw bytes, base32-encoded
// for use in a guest's manage-booking link.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("appointment: generate guest token: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}
