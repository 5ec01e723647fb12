// Package allocation provides deterministic bucket assignment for splitting
// users across onboarding flow candidates.
package allocation

// Bucket returns a deterministic bucket (0-99) for the given stable id.
// The same stable id always returns the same bucket across processes and
// platforms.
//
// The hash is the 32-bit DJB2 variant rather than a Go-native hash: surfaces
// compute the same bucket in JavaScript, so both sides must agree on the
// algorithm byte for byte.
func Bucket(stableID string) int {
	var h uint32 = 5381
	for i := 0; i < len(stableID); i++ {
		h = ((h << 5) + h) + uint32(stableID[i])
	}
	return int(h % 100)
}
