package appointment

import (
	"crypto/rand"
	"fmt"
)

// bookingCodeAlphabet is the 36-character uppercase alphabet booking codes
// are drawn from (spec §6.3).
const bookingCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateBookingCode produces a code of form RIVO-XXX-XXX-XXX, 9
// alphanumeric characters drawn uniformly from bookingCodeAlphabet
// (spec §6.3). Collisions are handled by the caller via retry-on-insert.
func generateBookingCode() (string, error) {
	var chars [9]byte
	// Bytes at or above the largest multiple of the alphabet size are
	// rejected so every character is equally likely.
	limit := 256 - 256%len(bookingCodeAlphabet)
	var buf [1]byte
	for i := 0; i < len(chars); {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("appointment: generate booking code: %w", err)
		}
		if int(buf[0]) >= limit {
			continue
		}
		chars[i] = bookingCodeAlphabet[int(buf[0])%len(bookingCodeAlphabet)]
		i++
	}
	return fmt.Sprintf("RIVO-%s-%s-%s", chars[0:3], chars[3:6], chars[6:9]), nil
}
