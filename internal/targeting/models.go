package targeting

import "github.com/rampkit/rampkit-go/internal/flow"

// Operator names a rule comparison. Unknown operators never match.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIsTrue      Operator = "is_true"
	OpIsFalse     Operator = "is_false"
	OpVersionGT   Operator = "version_greater_than"
	OpVersionLT   Operator = "version_less_than"
)

// Rule compares one context attribute against a value.
type Rule struct {
	Attribute string   `json:"attribute"` // "<category>.<field>"
	Operator  Operator `json:"operator"`
	Value     any      `json:"value,omitempty"`
}

// MatchMode combines rule results within a RuleSet.
type MatchMode string

const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// RuleSet is a conjunction or disjunction of rules. An empty rule list
// matches everything (open default).
type RuleSet struct {
	Match MatchMode `json:"match,omitempty"` // defaults to "all"
	Rules []Rule    `json:"rules"`
}

// Target is a named, prioritized rule set mapping to one or more candidate
// onboarding flows. Priority 0 is highest.
type Target struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Priority    int               `json:"priority"`
	Rules       RuleSet           `json:"rules"`
	Expression  string            `json:"expression,omitempty"` // optional JSON Logic, AND-ed with Rules
	Onboardings []flow.Onboarding `json:"onboardings"`
}

// Selection is the outcome of target evaluation: the chosen flow plus the
// target and bucket that produced it, for tracking.
type Selection struct {
	Onboarding *flow.Onboarding `json:"onboarding"`
	TargetID   string           `json:"targetId"`
	TargetName string           `json:"targetName"`
	Bucket     int              `json:"bucket"`
}
