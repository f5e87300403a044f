package vectorstore

import (
	"crypto/sha256"
	"fmt"
)

// PhysicalKey computes the deterministic vector-store point id for an
// event's original_id: SHA-256 over the UTF-8 bytes of originalID, the
// first 16 bytes, formatted as a canonical hyphenated 8-4-4-4-12 hex
// identifier. It is UUID-shaped but not a real (version-tagged) UUID; two
// equal original_ids always collide on the same physical record, and the
// 128-bit digest keeps collisions between distinct ids implausible.
//
// This deliberately differs from the original Python implementation,
// which took the first 8 bytes of the same hash and interpreted them as a
// signed int64 point id (Qdrant also accepts unsigned integer ids). The
// wider 16-byte key removes the int64 collision surface entirely.
func PhysicalKey(originalID string) string {
	sum := sha256.Sum256([]byte(originalID))
	b := sum[:16]
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
