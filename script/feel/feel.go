// Package feel evaluates FEEL expressions, used to inject field values into listeners.
package feel

import (
	"fmt"
	"strconv"

	"github.com/pbinitiative/feel"
)

func New() *Evaluator {
	return &Evaluator{}
}

type Evaluator struct {
}

// Evaluate evaluates an expression against variables.
//
// Numbers are returned as int64, when they have no fraction, otherwise as float64.
func (e *Evaluator) Evaluate(expression string, variables map[string]any) (any, error) {
	if variables == nil {
		variables = map[string]any{}
	}

	result, err := feel.EvalStringWithScope(expression, variables)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate FEEL expression %q: %v", expression, err)
	}

	return normalize(result), nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case nil, string, bool, int64, float64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case []any:
		for i := range v {
			v[i] = normalize(v[i])
		}
		return v
	case map[string]any:
		for key := range v {
			v[key] = normalize(v[key])
		}
		return v
	case fmt.Stringer:
		s := v.String()
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	default:
		return v
	}
}
