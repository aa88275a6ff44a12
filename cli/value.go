package cli

import (
	"fmt"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
)

// batchTypeValue is a custom flag value for a batch type.
type batchTypeValue engine.BatchType

func (v *batchTypeValue) Set(s string) error {
	batchType := engine.MapBatchType(s)
	if batchType == 0 {
		return fmt.Errorf("invalid batch type %s", s)
	}

	*v = batchTypeValue(batchType)
	return nil
}

func (v batchTypeValue) String() string {
	if v == 0 {
		return ""
	}
	return engine.BatchType(v).String()
}

func (v batchTypeValue) Type() string {
	return "batchType"
}

// orderByValue is a custom flag value for the sort order of query results.
type orderByValue engine.OrderBy

func (v *orderByValue) Set(s string) error {
	orderBy := engine.MapOrderBy(s)
	if orderBy == engine.OrderById && s != "ID" {
		return fmt.Errorf("invalid order by %s", s)
	}

	*v = orderByValue(orderBy)
	return nil
}

func (v orderByValue) String() string {
	return engine.OrderBy(v).String()
}

func (v orderByValue) Type() string {
	return "orderBy"
}

// scopeStateValue is a custom flag value for a scope state.
type scopeStateValue engine.ScopeState

func (v *scopeStateValue) Set(s string) error {
	scopeState := engine.MapScopeState(s)
	if scopeState == 0 {
		return fmt.Errorf("invalid scope state %s", s)
	}

	*v = scopeStateValue(scopeState)
	return nil
}

func (v scopeStateValue) String() string {
	if v == 0 {
		return ""
	}
	return engine.ScopeState(v).String()
}

func (v scopeStateValue) Type() string {
	return "scopeState"
}

// transitionValue is a custom flag value for a lifecycle transition.
type transitionValue engine.Transition

func (v *transitionValue) Set(s string) error {
	transition := engine.MapTransition(s)
	if transition == 0 {
		return fmt.Errorf("invalid transition %s", s)
	}

	*v = transitionValue(transition)
	return nil
}

func (v transitionValue) String() string {
	if v == 0 {
		return ""
	}
	return engine.Transition(v).String()
}

func (v transitionValue) Type() string {
	return "transition"
}

type timeValue time.Time

func (v *timeValue) Set(s string) error {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}

	*v = timeValue(t)
	return nil
}

func (v timeValue) String() string {
	if time.Time(v).IsZero() {
		return ""
	}
	return time.Time(v).Format(time.RFC3339)
}

func (v timeValue) Type() string {
	return "time"
}
