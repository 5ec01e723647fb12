package allocation

import (
	"strconv"
	"testing"
)

func TestBucket_KnownValues(t *testing.T) {
	// Pin the DJB2 algorithm: these values must match what surface-side
	// JavaScript computes for the same strings.
	cases := []struct {
		in   string
		want int
	}{
		{"", 81},  // 5381 % 100
		{"a", 70}, // (5381*33 + 97) % 100
		{"ab", 8},
	}
	for _, c := range cases {
		if got := Bucket(c.in); got != c.want {
			t.Errorf("Bucket(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestBucket_Deterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := "user-" + strconv.Itoa(i)
		if Bucket(id) != Bucket(id) {
			t.Fatalf("Bucket not deterministic for %q", id)
		}
	}
}

func TestBucket_Range(t *testing.T) {
	for i := 0; i < 10000; i++ {
		b := Bucket("user-" + strconv.Itoa(i))
		if b < 0 || b > 99 {
			t.Fatalf("bucket out of range: %d", b)
		}
	}
}

func TestSelect_Empty(t *testing.T) {
	_, err := Select(nil, "user-1")
	if err != ErrNoCandidates {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestSelect_SingleCandidateFastPath(t *testing.T) {
	sel, err := Select([]Candidate{{ID: "only", Allocation: 100}}, "whatever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.ID != "only" || sel.Bucket != 0 || sel.Index != 0 {
		t.Errorf("unexpected selection: %+v", sel)
	}
}

func TestSelect_CumulativeWalk(t *testing.T) {
	candidates := []Candidate{{ID: "A", Allocation: 30}, {ID: "B", Allocation: 70}}
	for i := 0; i < 1000; i++ {
		id := "user-" + strconv.Itoa(i)
		sel, err := Select(candidates, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "B"
		if Bucket(id) < 30 {
			want = "A"
		}
		if sel.ID != want {
			t.Errorf("id %q bucket %d: selected %q, want %q", id, Bucket(id), sel.ID, want)
		}
	}
}

func TestSelect_Deterministic(t *testing.T) {
	candidates := []Candidate{{ID: "A", Allocation: 50}, {ID: "B", Allocation: 50}}
	first, _ := Select(candidates, "user-42")
	for i := 0; i < 10; i++ {
		again, _ := Select(candidates, "user-42")
		if again != first {
			t.Fatalf("Select not deterministic: %+v vs %+v", first, again)
		}
	}
}

func TestSelect_UnderAllocatedFallsBackToLast(t *testing.T) {
	// Allocations sum to 20; any bucket >= 20 must land on the last candidate.
	candidates := []Candidate{{ID: "A", Allocation: 10}, {ID: "B", Allocation: 10}}

	found := false
	for i := 0; i < 1000; i++ {
		id := "user-" + strconv.Itoa(i)
		if Bucket(id) < 20 {
			continue
		}
		found = true
		sel, err := Select(candidates, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sel.ID != "B" {
			t.Errorf("id %q bucket %d: selected %q, want last candidate B", id, Bucket(id), sel.ID)
		}
	}
	if !found {
		t.Fatal("no test id hashed to bucket >= 20")
	}
}

func TestSelect_Distribution(t *testing.T) {
	// ~30% of users should land on A with a 30/70 split.
	candidates := []Candidate{{ID: "A", Allocation: 30}, {ID: "B", Allocation: 70}}
	total := 10000
	countA := 0
	for i := 0; i < total; i++ {
		sel, _ := Select(candidates, "user-"+strconv.Itoa(i))
		if sel.ID == "A" {
			countA++
		}
	}
	pct := float64(countA) / float64(total) * 100
	if pct < 25 || pct > 35 {
		t.Errorf("expected ~30%% on A, got %.2f%% (%d/%d)", pct, countA, total)
	}
}
