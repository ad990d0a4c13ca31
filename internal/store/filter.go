package store

import (
	"strings"

	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
)

// Matches reports whether the instance satisfies every clause of the
// filter. Clauses are a conjunction; an empty filter matches everything.
// A clause whose field is absent, or whose operand types cannot be
// compared, fails the clause rather than erroring.
func Matches(in *Instance, filter []spec.FilterClause) bool {
	for _, cl := range filter {
		if !matchClause(in, cl) {
			return false
		}
	}
	return true
}

func matchClause(in *Instance, cl spec.FilterClause) bool {
	actual, ok := fieldValue(in, cl.Field)
	if !ok {
		return false
	}
	switch cl.Operator {
	case "equals":
		return record.Equal(actual, cl.Value)
	case "not_equals":
		return !record.Equal(actual, cl.Value)
	case "greater_than":
		c, ok := record.Compare(actual, cl.Value)
		return ok && c > 0
	case "less_than":
		c, ok := record.Compare(actual, cl.Value)
		return ok && c < 0
	case "greater_or_equal":
		c, ok := record.Compare(actual, cl.Value)
		return ok && c >= 0
	case "less_or_equal":
		c, ok := record.Compare(actual, cl.Value)
		return ok && c <= 0
	case "in":
		return containsValue(cl.Value, actual)
	case "not_in":
		return !containsValue(cl.Value, actual)
	default:
		return false
	}
}

// fieldValue resolves "state.<attr>" against the instance state and any
// other field path against the payload. A "payload." prefix is optional
// on payload paths.
func fieldValue(in *Instance, field string) (any, bool) {
	if attr, ok := strings.CutPrefix(field, "state."); ok {
		return in.StateValue(attr)
	}
	if in.Payload == nil {
		return nil, false
	}
	if path, ok := strings.CutPrefix(field, "payload."); ok {
		field = path
	}
	return record.Lookup(in.Payload, field)
}

func containsValue(candidates any, v any) bool {
	list, ok := candidates.([]any)
	if !ok {
		return false
	}
	for _, c := range list {
		if record.Equal(v, c) {
			return true
		}
	}
	return false
}
