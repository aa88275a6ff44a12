package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/stretchr/testify/assert"
)

func TestVariables(t *testing.T) {
	assert := assert.New(t)

	engines, engineTypes := mustCreateEngines(t)
	for _, e := range engines {
		defer e.Shutdown()
	}

	for i, e := range engines {
		// given
		definition := mustDeploy(t, e, "", "stage.yaml").Definitions[0]

		t.Run(engineTypes[i]+"set, get and remove", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			caseInstance := ciAssert.CaseInstance()
			humanTask1 := ciAssert.Scope("humanTask1")

			timestamp := time.Date(2026, 1, 2, 3, 4, 5, 6000000, time.UTC)

			// when
			if err := e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId: caseInstance.Id,
				Variables: map[string]any{
					"boolean":   true,
					"double":    1.5,
					"integer":   7,
					"json":      map[string]any{"a": []any{1, "b"}},
					"null":      nil,
					"string":    "value",
					"timestamp": timestamp,
				},
				WorkerId: testWorkerId,
			}); err != nil {
				t.Fatalf("failed to set variables: %v", err)
			}

			// then
			assert.Equal(map[string]any{
				"boolean":   true,
				"double":    1.5,
				"integer":   int64(7),
				"json":      map[string]any{"a": []any{int64(1), "b"}},
				"null":      nil,
				"string":    "value",
				"timestamp": timestamp,
			}, ciAssert.Variables())

			// when
			variables, err := e.GetVariables(context.Background(), engine.GetVariablesCmd{
				ScopeId: humanTask1.Id,
				Names:   []string{"integer", "string", "notExisting"},
			})
			if err != nil {
				t.Fatalf("failed to get variables: %v", err)
			}

			// then
			assert.Equal(map[string]any{"integer": int64(7), "string": "value"}, variables)

			// when
			variables, err = e.GetVariables(context.Background(), engine.GetVariablesCmd{
				ScopeId: humanTask1.Id,
				Local:   true,
			})
			if err != nil {
				t.Fatalf("failed to get variables: %v", err)
			}

			// then
			assert.Empty(variables)

			// when
			if err := e.RemoveVariables(context.Background(), engine.RemoveVariablesCmd{
				ScopeId:  humanTask1.Id,
				Names:    []string{"boolean", "notExisting"},
				WorkerId: testWorkerId,
			}); err != nil {
				t.Fatalf("failed to remove variables: %v", err)
			}

			// then
			ciAssert.HasNoVariable("boolean")
			ciAssert.HasVariable("string", "value")
		})

		t.Run(engineTypes[i]+"non-local write updates the owning scope", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, map[string]any{"a": "ci"})
			caseInstance := ciAssert.CaseInstance()
			humanTask1 := ciAssert.Scope("humanTask1")

			// when
			if err := e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId:   humanTask1.Id,
				Variables: map[string]any{"a": "task", "b": "task"},
				WorkerId:  testWorkerId,
			}); err != nil {
				t.Fatalf("failed to set variables: %v", err)
			}

			// then
			ciAssert.HasVariable("a", "task")
			ciAssert.HasNoVariable("b")

			results, err := e.CreateQuery().QueryVariables(context.Background(), engine.VariableCriteria{
				CaseInstanceId: caseInstance.Id,
				Names:          []string{"a"},
			})
			if err != nil {
				t.Fatalf("failed to query variables: %v", err)
			}

			assert.Len(results, 1)
			assert.Equal(caseInstance.Id, results[0].ScopeId)
			assert.Equal(humanTask1.Id, results[0].SourceScopeId)
			assert.Equal("string", results[0].TypeName)

			results, err = e.CreateQuery().QueryVariables(context.Background(), engine.VariableCriteria{
				ScopeId: humanTask1.Id,
			})
			if err != nil {
				t.Fatalf("failed to query variables: %v", err)
			}

			assert.Len(results, 1)
			assert.Equal("b", results[0].Name)
		})

		t.Run(engineTypes[i]+"local write shadows the variable of an ancestor", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, map[string]any{"a": "ci"})
			humanTask1 := ciAssert.Scope("humanTask1")

			// when
			if err := e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId:   humanTask1.Id,
				Variables: map[string]any{"a": "task"},
				Local:     true,
				WorkerId:  testWorkerId,
			}); err != nil {
				t.Fatalf("failed to set variables: %v", err)
			}

			// then
			ciAssert.HasVariable("a", "ci")

			variables, err := e.GetVariables(context.Background(), engine.GetVariablesCmd{ScopeId: humanTask1.Id})
			if err != nil {
				t.Fatalf("failed to get variables: %v", err)
			}

			assert.Equal(map[string]any{"a": "task"}, variables)
		})

		t.Run(engineTypes[i]+"variables of a scope are removed with the scope", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			humanTask1 := ciAssert.Scope("humanTask1")

			if err := e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId:   humanTask1.Id,
				Variables: map[string]any{"a": "task"},
				WorkerId:  testWorkerId,
			}); err != nil {
				t.Fatalf("failed to set variables: %v", err)
			}

			// when
			mustTransition(t, e, humanTask1.Id, engine.TransitionComplete)

			// then
			results, err := e.CreateQuery().QueryVariables(context.Background(), engine.VariableCriteria{
				ScopeId: humanTask1.Id,
			})
			if err != nil {
				t.Fatalf("failed to query variables: %v", err)
			}

			assert.Empty(results)
		})

		t.Run(engineTypes[i]+"returns error when scope has ended", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			ciAssert.TransitionCaseInstance(engine.TransitionTerminate)
			caseInstance := ciAssert.TransitionCaseInstance(engine.TransitionClose)

			// when
			err := e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId:   caseInstance.Id,
				Variables: map[string]any{"a": "b"},
				WorkerId:  testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorNotFound)
		})

		t.Run(engineTypes[i]+"returns error when command is invalid", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			caseInstance := ciAssert.CaseInstance()

			// when
			err := e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId:   caseInstance.Id,
				Variables: map[string]any{"a b": 1},
				WorkerId:  testWorkerId,
			})

			// then
			engineErr := assertEngineError(t, err, engine.ErrorValidation)
			assert.Len(engineErr.Causes, 1)

			// when
			err = e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId:   caseInstance.Id,
				Variables: map[string]any{"a": make(chan int)},
				WorkerId:  testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorValidation)

			// when
			err = e.RemoveVariables(context.Background(), engine.RemoveVariablesCmd{
				ScopeId:  caseInstance.Id,
				WorkerId: testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorValidation)
		})
	}
}

func TestVariableListener(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}

	engines, engineTypes := mustCreateEngines(t, withRecordingListeners(rec))
	for _, e := range engines {
		defer e.Shutdown()
	}

	for i, e := range engines {
		// given
		definition := mustDeploy(t, e, "", "listener/variable.yaml").Definitions[0]

		ciAssert := mustCreateCaseInstance(t, e, definition, map[string]any{"a": 1})
		caseInstance := ciAssert.CaseInstance()
		humanTask := ciAssert.Scope("humanTask")

		setVariables := func(t *testing.T, scopeId int64, local bool, variables map[string]any) {
			if err := e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId:   scopeId,
				Variables: variables,
				Local:     local,
				WorkerId:  testWorkerId,
			}); err != nil {
				t.Fatalf("failed to set variables: %v", err)
			}
		}

		t.Run(engineTypes[i]+"create on case instance", func(t *testing.T) {
			assert.Equal([]string{
				fmt.Sprintf("0:create:a=1@%d/%d", caseInstance.Id, caseInstance.Id),
			}, rec.reset())
		})

		t.Run(engineTypes[i]+"create on task with field injection", func(t *testing.T) {
			// when
			setVariables(t, humanTask.Id, false, map[string]any{"b": "x"})

			// then
			assert.Equal([]string{
				fmt.Sprintf("task42:create:b=x@%d/%d", humanTask.Id, humanTask.Id),
			}, rec.reset())
		})

		t.Run(engineTypes[i]+"update of ancestor variable from task", func(t *testing.T) {
			// when
			setVariables(t, humanTask.Id, false, map[string]any{"a": 2})

			// then
			assert.Equal([]string{
				fmt.Sprintf("0:update:a=2@%d/%d", caseInstance.Id, humanTask.Id),
			}, rec.reset())
		})

		t.Run(engineTypes[i]+"local write does not notify ancestor", func(t *testing.T) {
			// when
			setVariables(t, humanTask.Id, true, map[string]any{"a": 3})

			// then
			assert.Equal([]string{
				fmt.Sprintf("task42:create:a=3@%d/%d", humanTask.Id, humanTask.Id),
			}, rec.reset())
		})

		t.Run(engineTypes[i]+"delete", func(t *testing.T) {
			// when
			if err := e.RemoveVariables(context.Background(), engine.RemoveVariablesCmd{
				ScopeId:  caseInstance.Id,
				Names:    []string{"a"},
				WorkerId: testWorkerId,
			}); err != nil {
				t.Fatalf("failed to remove variables: %v", err)
			}

			// then
			assert.Equal([]string{
				fmt.Sprintf("0:delete:a=2@%d/%d", caseInstance.Id, caseInstance.Id),
			}, rec.reset())
		})
	}
}

func TestVariableListenerCascade(t *testing.T) {
	assert := assert.New(t)

	rec := &recorder{}

	newListener := func(name string) engine.BuiltinListener {
		return engine.BuiltinListener{
			DefinitionKey: "oneTaskCase",
			ActivityId:    "casePlanModel",
			Listener: engine.CaseVariableListenerFunc(func(_ context.Context, variable engine.DelegateCaseVariableInstance) error {
				rec.record("%s:%s:%v", name, variable.EventName(), variable.Value())

				if variable.EventName() == engine.EventCreate && variable.Value() == "value1" {
					return variable.SourceExecution().SetVariable("variable", "value2")
				}
				return nil
			}),
		}
	}

	engines, engineTypes := mustCreateEngines(t, func(o *engine.Options) {
		o.BuiltinListeners = []engine.BuiltinListener{newListener("l1"), newListener("l2")}
	})
	for _, e := range engines {
		defer e.Shutdown()
	}

	for i, e := range engines {
		// given
		definition := mustDeploy(t, e, "", "one-task.yaml").Definitions[0]
		ciAssert := mustCreateCaseInstance(t, e, definition, nil)
		caseInstance := ciAssert.CaseInstance()

		t.Run(engineTypes[i]+"writes of listeners are dispatched after the current event", func(t *testing.T) {
			// when
			if err := e.SetVariables(context.Background(), engine.SetVariablesCmd{
				ScopeId:   caseInstance.Id,
				Variables: map[string]any{"variable": "value1"},
				WorkerId:  testWorkerId,
			}); err != nil {
				t.Fatalf("failed to set variables: %v", err)
			}

			// then
			assert.Equal([]string{
				"l1:create:value1",
				"l2:create:value1",
				"l1:update:value2",
				"l2:update:value2",
				"l1:update:value2",
				"l2:update:value2",
			}, rec.reset())

			ciAssert.HasVariable("variable", "value2")
		})
	}
}
