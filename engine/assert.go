package engine

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sort"
	"strings"
	"testing"
)

// Assert returns a test helper for a case instance, created by [Engine.CreateCaseInstance].
func Assert(t *testing.T, e Engine, caseInstance Scope) *CaseInstanceAssert {
	if !caseInstance.IsCaseInstance() {
		t.Fatalf("scope %s is not a case instance", caseInstance)
	}

	return &CaseInstanceAssert{
		t:   t,
		e:   e,
		ctx: context.Background(),

		caseInstanceId: caseInstance.Id,
	}
}

type CaseInstanceAssert struct {
	t   *testing.T
	e   Engine
	ctx context.Context

	caseInstanceId int64
}

// WithContext returns a copy of the helper, which uses ctx for all commands and queries.
// A context with [Authentication] is required for case instances with tenant.
func (a *CaseInstanceAssert) WithContext(ctx context.Context) *CaseInstanceAssert {
	return &CaseInstanceAssert{
		t:   a.t,
		e:   a.e,
		ctx: ctx,

		caseInstanceId: a.caseInstanceId,
	}
}

// CaseInstance queries the current state of the case instance.
func (a *CaseInstanceAssert) CaseInstance() Scope {
	results, err := a.e.CreateQuery().QueryScopes(a.ctx, ScopeCriteria{Id: a.caseInstanceId})
	if err != nil {
		a.Fatalf("failed to query case instance: %v", err)
	}
	if len(results) != 1 {
		a.Fatalf("expected one case instance, but got %d", len(results))
	}
	return results[0]
}

func (a *CaseInstanceAssert) Fatalf(format string, args ...any) {
	data := map[string]string{
		"Error Trace": string(debug.Stack()),
		"Error":       fmt.Sprintf(format, args...),
		"Test":        a.t.Name(),
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("\n%s: %s", k, data[k]))
	}

	a.t.Fatal(sb.String())
}

func (a *CaseInstanceAssert) HasNoScope(activityId string) {
	results := a.scopes(activityId)
	if len(results) != 0 {
		a.Fatalf("expected case instance to have no scope %s, but got %d", activityId, len(results))
	}
}

func (a *CaseInstanceAssert) HasNoVariable(name string) {
	variables := a.Variables()
	if _, ok := variables[name]; ok {
		a.Fatalf("expected case instance to have no variable %s, but has", name)
	}
}

// HasScope asserts that exactly one scope of the activity exists and that it is in the expected state.
func (a *CaseInstanceAssert) HasScope(activityId string, state ScopeState) Scope {
	scope := a.Scope(activityId)
	if scope.State != state {
		a.Fatalf("expected scope %s to be %s, but is %s", scope, state, scope.State)
	}
	return scope
}

func (a *CaseInstanceAssert) HasState(state ScopeState) {
	caseInstance := a.CaseInstance()
	if caseInstance.State != state {
		a.Fatalf("expected case instance to be %s, but is %s", state, caseInstance.State)
	}
}

// HasVariable asserts a variable of the case instance itself.
func (a *CaseInstanceAssert) HasVariable(name string, expected any) {
	variables := a.Variables()

	actual, ok := variables[name]
	if !ok {
		a.Fatalf("expected case instance to have variable %s, but has not", name)
	}
	if !reflect.DeepEqual(expected, actual) {
		a.Fatalf("expected variable %s to be %v (%T), but is %v (%T)", name, expected, expected, actual, actual)
	}
}

func (a *CaseInstanceAssert) IsActive() {
	a.HasState(ScopeActive)
}

// IsClosed asserts that the case instance has been closed and removed.
func (a *CaseInstanceAssert) IsClosed() {
	results, err := a.e.CreateQuery().QueryScopes(a.ctx, ScopeCriteria{Id: a.caseInstanceId})
	if err != nil {
		a.Fatalf("failed to query case instance: %v", err)
	}
	if len(results) != 0 {
		a.Fatalf("expected case instance to be closed, but is %s", results[0].State)
	}
}

func (a *CaseInstanceAssert) IsCompleted() {
	a.HasState(ScopeCompleted)
}

func (a *CaseInstanceAssert) IsTerminated() {
	a.HasState(ScopeTerminated)
}

// Scope returns the one and only scope of an activity.
func (a *CaseInstanceAssert) Scope(activityId string) Scope {
	results := a.scopes(activityId)
	if len(results) != 1 {
		a.Fatalf("expected one scope %s, but got %d", activityId, len(results))
	}
	return results[0]
}

func (a *CaseInstanceAssert) SetVariables(variables map[string]any) {
	if err := a.e.SetVariables(a.ctx, SetVariablesCmd{
		ScopeId:   a.caseInstanceId,
		Variables: variables,
		WorkerId:  "test-worker",
	}); err != nil {
		a.Fatalf("failed to set variables: %v", err)
	}
}

// Transition performs a transition on the one and only scope of an activity.
func (a *CaseInstanceAssert) Transition(activityId string, transition Transition) Scope {
	scope := a.Scope(activityId)

	result, err := a.e.TransitionScope(a.ctx, TransitionScopeCmd{
		ScopeId:    scope.Id,
		Transition: transition,
		WorkerId:   "test-worker",
	})
	if err != nil {
		a.Fatalf("failed to perform transition %s on scope %s: %v", transition, scope, err)
	}
	return result
}

// TransitionCaseInstance performs a transition on the case instance.
func (a *CaseInstanceAssert) TransitionCaseInstance(transition Transition) Scope {
	result, err := a.e.TransitionScope(a.ctx, TransitionScopeCmd{
		ScopeId:    a.caseInstanceId,
		Transition: transition,
		WorkerId:   "test-worker",
	})
	if err != nil {
		a.Fatalf("failed to perform transition %s on case instance: %v", transition, err)
	}
	return result
}

// Variables gets the variables of the case instance itself.
func (a *CaseInstanceAssert) Variables() map[string]any {
	variables, err := a.e.GetVariables(a.ctx, GetVariablesCmd{ScopeId: a.caseInstanceId, Local: true})
	if err != nil {
		a.Fatalf("failed to get variables: %v", err)
	}
	return variables
}

func (a *CaseInstanceAssert) scopes(activityId string) []Scope {
	results, err := a.e.CreateQuery().QueryScopes(a.ctx, ScopeCriteria{
		CaseInstanceId: a.caseInstanceId,
		ActivityId:     activityId,
	})
	if err != nil {
		a.Fatalf("failed to query scopes: %v", err)
	}
	return results
}
