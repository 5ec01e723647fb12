package allocation

import "errors"

// ErrNoCandidates is returned when the candidate list is empty. An empty list
// indicates a malformed manifest, so this fails loudly instead of defaulting.
var ErrNoCandidates = errors.New("allocation: candidate list is empty")

// Candidate is one allocation candidate. Allocation is a percentage share
// (0-100) of the bucket space, consumed in declaration order.
type Candidate struct {
	ID         string `json:"id"`
	Allocation int    `json:"allocation"`
}

// Selection is the result of a deterministic candidate pick.
type Selection struct {
	Index  int    // index into the candidate slice
	ID     string // candidate id, for logging and tracking
	Bucket int    // 0-99 bucket the stable id hashed to
}

// Select picks a candidate for the given stable id.
//
// Algorithm:
//  1. bucket = Bucket(stableID)
//  2. Walk candidates in declaration order accumulating Allocation; the first
//     candidate whose cumulative sum exceeds the bucket wins.
//
// A single-candidate list short-circuits to bucket 0 without hashing.
//
// If allocations sum to less than 100 and the walk exhausts without a match,
// the last candidate is returned. That fallback is deliberate and relied upon
// by existing manifests; do not turn it into an error.
func Select(candidates []Candidate, stableID string) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}
	if len(candidates) == 1 {
		return Selection{Index: 0, ID: candidates[0].ID, Bucket: 0}, nil
	}

	bucket := Bucket(stableID)
	cumulative := 0
	for i, c := range candidates {
		cumulative += c.Allocation
		if bucket < cumulative {
			return Selection{Index: i, ID: c.ID, Bucket: bucket}, nil
		}
	}

	last := len(candidates) - 1
	return Selection{Index: last, ID: candidates[last].ID, Bucket: bucket}, nil
}
