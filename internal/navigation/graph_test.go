package navigation

import "testing"

func TestResolver_NoGraph(t *testing.T) {
	r := NewResolver(nil)
	if _, ok := r.Continue("s1"); ok {
		t.Error("nil graph should never resolve")
	}
	if _, ok := r.GoBack("s1"); ok {
		t.Error("nil graph should never resolve")
	}
}

func TestResolver_MainFlowAdjacency(t *testing.T) {
	r := NewResolver(&Data{MainFlow: []string{"s1", "s2", "s3"}})

	if next, ok := r.Continue("s2"); !ok || next != "s3" {
		t.Errorf("Continue(s2) = %q, %v; want s3, true", next, ok)
	}
	if prev, ok := r.GoBack("s2"); !ok || prev != "s1" {
		t.Errorf("GoBack(s2) = %q, %v; want s1, true", prev, ok)
	}
}

func TestResolver_MainFlowBoundaries(t *testing.T) {
	r := NewResolver(&Data{MainFlow: []string{"s1", "s2", "s3"}})

	// End of flow: caller checks array bounds and may close the session.
	if _, ok := r.Continue("s3"); ok {
		t.Error("Continue at end of main flow should not resolve")
	}
	if _, ok := r.GoBack("s1"); ok {
		t.Error("GoBack at start of main flow should not resolve")
	}
}

func TestResolver_BranchRejoin(t *testing.T) {
	data := &Data{
		MainFlow: []string{"s1", "s2", "s3"},
		ScreenPositions: map[string]Position{
			"s1":      {Row: 0, X: 0},
			"s2":      {Row: 0, X: 10},
			"s3":      {Row: 0, X: 20},
			"variant": {Row: 1, X: 10}, // branch hanging off s2
		},
	}
	r := NewResolver(data)

	// Continue from a branch: smallest main-flow X strictly greater than 10.
	if next, ok := r.Continue("variant"); !ok || next != "s3" {
		t.Errorf("Continue(variant) = %q, %v; want s3, true", next, ok)
	}
	// GoBack from a branch: largest main-flow X <= 10 (the screen it hangs off).
	if prev, ok := r.GoBack("variant"); !ok || prev != "s2" {
		t.Errorf("GoBack(variant) = %q, %v; want s2, true", prev, ok)
	}
}

func TestResolver_BranchPastEnd(t *testing.T) {
	data := &Data{
		MainFlow: []string{"s1", "s2"},
		ScreenPositions: map[string]Position{
			"s1":      {X: 0},
			"s2":      {X: 10},
			"variant": {X: 30}, // beyond the last main-flow screen
		},
	}
	r := NewResolver(data)
	if _, ok := r.Continue("variant"); ok {
		t.Error("no main-flow screen past X=30; should not resolve")
	}
	if prev, ok := r.GoBack("variant"); !ok || prev != "s2" {
		t.Errorf("GoBack(variant) = %q, %v; want s2, true", prev, ok)
	}
}

func TestResolver_MissingPositionFallsBack(t *testing.T) {
	data := &Data{
		MainFlow:        []string{"s1", "s2"},
		ScreenPositions: map[string]Position{"s1": {X: 0}, "s2": {X: 10}},
	}
	r := NewResolver(data)
	if _, ok := r.Continue("unknown-screen"); ok {
		t.Error("screen without position data should fall back to array order")
	}
}

func TestResolver_RejoinTieBreaksOnMainFlowOrder(t *testing.T) {
	data := &Data{
		MainFlow: []string{"a", "b", "c"},
		ScreenPositions: map[string]Position{
			"a":      {X: 5},
			"b":      {X: 5}, // same X as a; first-found wins
			"c":      {X: 9},
			"branch": {X: 7},
		},
	}
	r := NewResolver(data)
	if prev, ok := r.GoBack("branch"); !ok || prev != "a" {
		t.Errorf("GoBack(branch) = %q, %v; want a (first-found at X=5), true", prev, ok)
	}
}
