// Package navigation resolves symbolic screen transitions (continue, go-back)
// against an explicit main-flow sequence plus a 2D position map for branch
// screens.
//
// Resolution returning ok=false means "use array-order fallback", not "dead
// end". Callers must distinguish graph-absent from graph-exhausted by checking
// array bounds themselves: both cases report ok=false here.
package navigation

// Position locates a screen on the flow editor grid. Row is informational
// only; X is the 1-D ordering key used to rejoin branch screens with the main
// sequence.
type Position struct {
	Row int `json:"row"`
	X   int `json:"x"`
}

// Data is the navigation graph for one onboarding flow. MainFlow entries are a
// strictly ordered subsequence of the flow's screens.
type Data struct {
	MainFlow        []string            `json:"mainFlow"`
	ScreenPositions map[string]Position `json:"screenPositions"`
}

// Resolver answers continue/go-back queries against one navigation graph.
// A nil graph resolver always reports ok=false (plain array-order fallback).
type Resolver struct {
	data *Data
}

// NewResolver creates a resolver for the given graph. Data may be nil when the
// flow carries no navigation graph.
func NewResolver(data *Data) *Resolver {
	return &Resolver{data: data}
}

// Continue resolves the screen that follows fromID. ok=false means the caller
// should fall back to array order (or close the session at the end of the
// flow).
func (r *Resolver) Continue(fromID string) (string, bool) {
	return r.resolve(fromID, true)
}

// GoBack resolves the screen that precedes fromID, mirroring Continue.
func (r *Resolver) GoBack(fromID string) (string, bool) {
	return r.resolve(fromID, false)
}

func (r *Resolver) resolve(fromID string, forward bool) (string, bool) {
	if r == nil || r.data == nil || len(r.data.MainFlow) == 0 {
		return "", false
	}

	main := r.data.MainFlow
	for i, id := range main {
		if id != fromID {
			continue
		}
		if forward {
			if i+1 < len(main) {
				return main[i+1], true
			}
		} else if i > 0 {
			return main[i-1], true
		}
		return "", false // boundary of the main flow
	}

	// fromID is a branch screen: rejoin the main flow by X position.
	pos, ok := r.data.ScreenPositions[fromID]
	if !ok {
		return "", false
	}
	return r.rejoin(pos.X, forward)
}

// rejoin finds the main-flow screen adjacent to a branch screen at the given
// X. Forward picks the smallest X strictly greater than x; backward picks the
// largest X less than or equal to x. Ties break on first-found main-flow
// order.
func (r *Resolver) rejoin(x int, forward bool) (string, bool) {
	best := ""
	bestX := 0
	for _, id := range r.data.MainFlow {
		pos, ok := r.data.ScreenPositions[id]
		if !ok {
			continue
		}
		if forward {
			if pos.X > x && (best == "" || pos.X < bestX) {
				best, bestX = id, pos.X
			}
		} else {
			if pos.X <= x && (best == "" || pos.X > bestX) {
				best, bestX = id, pos.X
			}
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
