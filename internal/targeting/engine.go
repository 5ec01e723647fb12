package targeting

import (
	"sort"

	"github.com/rampkit/rampkit-go/internal/allocation"
	"github.com/rs/zerolog"
)

// Engine runs the full flow selection: priority-ordered rule evaluation with
// a guaranteed fallback, then deterministic allocation within the matched
// target. One engine instance is constructed per process and passed to call
// sites explicitly.
type Engine struct {
	eval *Evaluator
	log  zerolog.Logger
}

// NewEngine creates a targeting engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{eval: NewEvaluator(log), log: log}
}

// EvaluateTargets picks an onboarding flow for the given context and stable id.
//
// Targets are evaluated in ascending priority order (0 first) over a sorted
// copy; the input slice is never reordered. The first target whose rule set
// (and optional expression) matches wins. If none match, the last target in
// priority order is used: every call with a non-empty target list returns a
// selection.
//
// Returns (nil, nil) only when targets is empty. The only error is a
// malformed manifest surfacing through allocation (empty onboarding list).
func (e *Engine) EvaluateTargets(targets []Target, ctx *Context, stableID string) (*Selection, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	ordered := make([]Target, len(targets))
	copy(ordered, targets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for i := range ordered {
		t := &ordered[i]
		if !e.eval.EvaluateRules(t.Rules, ctx) {
			continue
		}
		if !e.eval.EvaluateExpression(t.Expression, ctx) {
			continue
		}
		return e.allocate(t, stableID)
	}

	// No target matched: fall back to the lowest-priority target so the
	// session always has a flow.
	last := &ordered[len(ordered)-1]
	e.log.Debug().Str("target", last.ID).Msg("no target matched, using lowest-priority fallback")
	return e.allocate(last, stableID)
}

func (e *Engine) allocate(t *Target, stableID string) (*Selection, error) {
	candidates := make([]allocation.Candidate, len(t.Onboardings))
	for i, o := range t.Onboardings {
		candidates[i] = allocation.Candidate{ID: o.ID, Allocation: o.Allocation}
	}

	sel, err := allocation.Select(candidates, stableID)
	if err != nil {
		return nil, err
	}

	return &Selection{
		Onboarding: &t.Onboardings[sel.Index],
		TargetID:   t.ID,
		TargetName: t.Name,
		Bucket:     sel.Bucket,
	}, nil
}
