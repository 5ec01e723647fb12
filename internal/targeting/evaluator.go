package targeting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/rs/zerolog"
)

// Evaluator evaluates targeting rules against a context. Rules come from
// externally-authored manifests, so every malformed input resolves to a safe
// no-match instead of an error: a bad rule must never take a session down.
type Evaluator struct {
	log zerolog.Logger
}

// NewEvaluator creates an evaluator that logs malformed-rule diagnostics to
// the given logger.
func NewEvaluator(log zerolog.Logger) *Evaluator {
	return &Evaluator{log: log}
}

// EvaluateRule returns whether a single rule matches the context.
// Malformed attributes, unknown categories, nil values, and unknown operators
// all return false, logged, never a panic.
func (e *Evaluator) EvaluateRule(rule Rule, ctx *Context) bool {
	value, ok := ctx.Resolve(rule.Attribute)
	if !ok {
		return false
	}

	handler, ok := operatorHandlers[rule.Operator]
	if !ok {
		e.log.Warn().Str("operator", string(rule.Operator)).Str("attribute", rule.Attribute).
			Msg("unknown rule operator, treating as no-match")
		return false
	}
	return handler(value, rule.Value)
}

// EvaluateRules returns whether a rule set matches the context. An empty rule
// list matches everything. Match "all" is a logical AND, "any" a logical OR;
// anything else defaults to "all".
func (e *Evaluator) EvaluateRules(set RuleSet, ctx *Context) bool {
	if len(set.Rules) == 0 {
		return true
	}

	if set.Match == MatchAny {
		for _, r := range set.Rules {
			if e.EvaluateRule(r, ctx) {
				return true
			}
		}
		return false
	}

	for _, r := range set.Rules {
		if !e.EvaluateRule(r, ctx) {
			return false
		}
	}
	return true
}

// EvaluateExpression evaluates an optional JSON Logic expression against the
// context. An empty expression matches everything; an invalid one matches
// nothing (logged).
func (e *Evaluator) EvaluateExpression(expression string, ctx *Context) bool {
	if strings.TrimSpace(expression) == "" {
		return true
	}

	data, err := json.Marshal(ctx.asMap())
	if err != nil {
		e.log.Warn().Err(err).Msg("targeting context not serializable for expression")
		return false
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(data), &out); err != nil {
		e.log.Warn().Err(err).Msg("invalid target expression, treating as no-match")
		return false
	}

	var result any
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		return false
	}
	return isTruthy(result)
}

type operatorHandler func(contextValue, ruleValue any) bool

var operatorHandlers = map[Operator]operatorHandler{
	OpEquals:      checkEquals,
	OpNotEquals:   func(cv, rv any) bool { return !checkEquals(cv, rv) },
	OpContains:    checkContains,
	OpStartsWith:  checkStartsWith,
	OpGreaterThan: numericCompare(func(a, b float64) bool { return a > b }),
	OpLessThan:    numericCompare(func(a, b float64) bool { return a < b }),
	OpIsTrue:      func(cv, _ any) bool { b, ok := cv.(bool); return ok && b },
	OpIsFalse:     func(cv, _ any) bool { b, ok := cv.(bool); return ok && !b },
	OpVersionGT:   semverCompare(func(a, b *semver.Version) bool { return a.GreaterThan(b) }),
	OpVersionLT:   semverCompare(func(a, b *semver.Version) bool { return a.LessThan(b) }),
}

// checkEquals is string equality after coercion, so 3 matches "3" and true
// matches "true" the way manifest authors expect.
func checkEquals(contextValue, ruleValue any) bool {
	return coerceString(contextValue) == coerceString(ruleValue)
}

func checkContains(contextValue, ruleValue any) bool {
	return strings.Contains(
		strings.ToLower(coerceString(contextValue)),
		strings.ToLower(coerceString(ruleValue)),
	)
}

func checkStartsWith(contextValue, ruleValue any) bool {
	return strings.HasPrefix(
		strings.ToLower(coerceString(contextValue)),
		strings.ToLower(coerceString(ruleValue)),
	)
}

func numericCompare(cmp func(a, b float64) bool) operatorHandler {
	return func(contextValue, ruleValue any) bool {
		a, ok := coerceFloat64(contextValue)
		if !ok {
			return false
		}
		b, ok := coerceFloat64(ruleValue)
		if !ok {
			return false
		}
		return cmp(a, b)
	}
}

func semverCompare(cmp func(a, b *semver.Version) bool) operatorHandler {
	return func(contextValue, ruleValue any) bool {
		a, err := semver.NewVersion(coerceString(contextValue))
		if err != nil {
			return false
		}
		b, err := semver.NewVersion(coerceString(ruleValue))
		if err != nil {
			return false
		}
		return cmp(a, b)
	}
}

func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func coerceFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// isTruthy follows JavaScript-like truthiness for expression results.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
