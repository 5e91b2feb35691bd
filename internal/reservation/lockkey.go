package reservation

import (
	"encoding/hex"
	"strings"
)

// lockKey derives the deterministic 63-bit advisory-lock key for a
// (tenantID, serviceID, slotStartEpochSeconds) triple (spec §4.4):
//
//	H = hash64(tenantId) XOR hash64(serviceId) XOR (slotStartEpochSeconds masked to 63 bits)
//
// Two concurrent callers contending for the same logical slot always derive
// the same H, so pg_advisory_xact_lock serializes them; keys for different
// slots are uncorrelated, so single-key transactions cannot deadlock.
func lockKey(tenantID, serviceID string, slotStartEpochSeconds int64) int64 {
	h := hash64(tenantID) ^ hash64(serviceID) ^ uint64(slotStartEpochSeconds)
	return int64(h & 0x7FFFFFFFFFFFFFFF) // mask to 63 bits: advisory lock keys are signed bigint
}

// hash64 takes the first 8 hex bytes of a UUID's hyphen-stripped hex form
// and interprets them as a big-endian uint64 (spec §4.4: "hash64 of a UUID
// may be the first 8 hex bytes interpreted as an integer").
func hash64(id string) uint64 {
	hex8 := firstHexBytes(id, 8)
	var out uint64
	for _, b := range hex8 {
		out = out<<8 | uint64(b)
	}
	return out
}

func firstHexBytes(id string, n int) []byte {
	compact := strings.ReplaceAll(id, "-", "")
	decoded, err := hex.DecodeString(compact)
	if err != nil || len(decoded) < n {
		// Non-UUID identifiers (e.g. test fixtures) still need a stable key;
		// fall back to the string's first n raw bytes, zero-padded.
		padded := make([]byte, n)
		copy(padded, []byte(compact))
		return padded
	}
	return decoded[:n]
}
