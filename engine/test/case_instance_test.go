package test

import (
	"context"
	"testing"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
	"github.com/stretchr/testify/assert"
)

func TestCreateCaseInstance(t *testing.T) {
	assert := assert.New(t)

	engines, engineTypes := mustCreateEngines(t)
	for _, e := range engines {
		defer e.Shutdown()
	}

	for i, e := range engines {
		// given
		definition := mustDeploy(t, e, "", "one-task.yaml").Definitions[0]

		t.Run(engineTypes[i]+"by definition ID", func(t *testing.T) {
			// when
			caseInstance, err := e.CreateCaseInstance(context.Background(), engine.CreateCaseInstanceCmd{
				DefinitionId: definition.Id,
				BusinessKey:  "bk",
				Variables:    map[string]any{"a": "value-a", "b": 1},
				WorkerId:     testWorkerId,
			})
			if err != nil {
				t.Fatalf("failed to create case instance: %v", err)
			}

			// then
			assert.True(caseInstance.IsCaseInstance())
			assert.False(caseInstance.HasParent())
			assert.Equal(definition.Id, caseInstance.DefinitionId)
			assert.Equal("casePlanModel", caseInstance.ActivityId)
			assert.Equal(model.ElementCasePlanModel, caseInstance.ActivityType)
			assert.Equal("bk", caseInstance.BusinessKey)
			assert.Equal(testWorkerId, caseInstance.CreatedBy)
			assert.Equal(engine.ScopeActive, caseInstance.State)
			assert.Nil(caseInstance.EndedAt)

			ciAssert := engine.Assert(t, e, caseInstance)
			ciAssert.IsActive()
			ciAssert.HasVariable("a", "value-a")
			ciAssert.HasVariable("b", int64(1))

			humanTask := ciAssert.HasScope("humanTask", engine.ScopeActive)
			assert.Equal(caseInstance.Id, humanTask.CaseInstanceId)
			assert.Equal(caseInstance.Id, humanTask.ParentId)
			assert.Equal(model.ElementHumanTask, humanTask.ActivityType)
			assert.Empty(humanTask.BusinessKey)

			tasks, err := e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{CaseInstanceId: caseInstance.Id})
			if err != nil {
				t.Fatalf("failed to query tasks: %v", err)
			}

			assert.Len(tasks, 1)
			assert.Equal(humanTask.Id, tasks[0].ScopeId)
			assert.Equal("humanTask", tasks[0].ActivityId)
			assert.Equal("A human task", tasks[0].Name)

			results, err := e.CreateQuery().QueryOperationLog(context.Background(), engine.OperationLogCriteria{
				CaseInstanceId: caseInstance.Id,
			})
			if err != nil {
				t.Fatalf("failed to query operation log: %v", err)
			}

			assert.Len(results, 1)
			assert.Equal("CREATE_CASE_INSTANCE", results[0].Operation)
			assert.Equal(caseInstance.Id, results[0].EntityId)
			assert.Equal(testWorkerId, results[0].WorkerId)
		})

		t.Run(engineTypes[i]+"by definition key", func(t *testing.T) {
			// given
			latest := mustDeploy(t, e, "", "one-task.yaml").Definitions[0]

			// when
			caseInstance, err := e.CreateCaseInstance(context.Background(), engine.CreateCaseInstanceCmd{
				DefinitionKey: "oneTaskCase",
				WorkerId:      testWorkerId,
			})
			if err != nil {
				t.Fatalf("failed to create case instance: %v", err)
			}

			// then
			assert.Equal(latest.Id, caseInstance.DefinitionId)
			assert.Equal(2, latest.Version)
		})

		t.Run(engineTypes[i]+"completes case instance when task is completed", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)

			// when
			ciAssert.Transition("humanTask", engine.TransitionComplete)

			// then
			ciAssert.IsCompleted()
			ciAssert.HasNoScope("humanTask")

			caseInstance := ciAssert.CaseInstance()
			assert.NotNil(caseInstance.EndedAt)

			tasks, err := e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{CaseInstanceId: caseInstance.Id})
			if err != nil {
				t.Fatalf("failed to query tasks: %v", err)
			}

			assert.Empty(tasks)
		})

		t.Run(engineTypes[i]+"returns error when definition not exists", func(t *testing.T) {
			// when
			_, err := e.CreateCaseInstance(context.Background(), engine.CreateCaseInstanceCmd{
				DefinitionId: -1,
				WorkerId:     testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorNotFound)

			// when
			_, err = e.CreateCaseInstance(context.Background(), engine.CreateCaseInstanceCmd{
				DefinitionKey: "notExisting",
				WorkerId:      testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorNotFound)
		})

		t.Run(engineTypes[i]+"returns error when command is invalid", func(t *testing.T) {
			// when
			_, err := e.CreateCaseInstance(context.Background(), engine.CreateCaseInstanceCmd{
				Variables: map[string]any{"invalid name": 1},
			})

			// then
			engineErr := assertEngineError(t, err, engine.ErrorValidation)
			assert.NotEmpty(engineErr.Causes)
		})
	}
}

func TestCreateChildScope(t *testing.T) {
	assert := assert.New(t)

	engines, engineTypes := mustCreateEngines(t)
	for _, e := range engines {
		defer e.Shutdown()
	}

	for i, e := range engines {
		// given
		definition := mustDeploy(t, e, "", "stage.yaml").Definitions[0]

		t.Run(engineTypes[i]+"create milestone", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			caseInstance := ciAssert.CaseInstance()

			// when
			scope, err := e.CreateChildScope(context.Background(), engine.CreateChildScopeCmd{
				ParentId:   caseInstance.Id,
				ActivityId: "milestone",
				WorkerId:   testWorkerId,
			})
			if err != nil {
				t.Fatalf("failed to create child scope: %v", err)
			}

			// then
			assert.Equal(caseInstance.Id, scope.CaseInstanceId)
			assert.Equal(caseInstance.Id, scope.ParentId)
			assert.Equal("milestone", scope.ActivityId)
			assert.Equal(engine.ScopeNew, scope.State)

			results, err := e.CreateQuery().QueryScopes(context.Background(), engine.ScopeCriteria{
				CaseInstanceId: caseInstance.Id,
				ActivityId:     "milestone",
			})
			if err != nil {
				t.Fatalf("failed to query scopes: %v", err)
			}

			assert.Len(results, 2)
		})

		t.Run(engineTypes[i]+"create human task within stage", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			stage := ciAssert.Scope("stage")

			// when
			scope, err := e.CreateChildScope(context.Background(), engine.CreateChildScopeCmd{
				ParentId:   stage.Id,
				ActivityId: "humanTask1",
				WorkerId:   testWorkerId,
			})
			if err != nil {
				t.Fatalf("failed to create child scope: %v", err)
			}

			// then
			assert.Equal(stage.Id, scope.ParentId)
			assert.Equal(engine.ScopeActive, scope.State)
		})

		t.Run(engineTypes[i]+"returns error when parent is terminal", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			caseInstance := ciAssert.TransitionCaseInstance(engine.TransitionTerminate)

			// when
			_, err := e.CreateChildScope(context.Background(), engine.CreateChildScopeCmd{
				ParentId:   caseInstance.Id,
				ActivityId: "milestone",
				WorkerId:   testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorIllegalState)
		})

		t.Run(engineTypes[i]+"returns error when plan item is not a child", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			caseInstance := ciAssert.CaseInstance()

			// when
			_, err := e.CreateChildScope(context.Background(), engine.CreateChildScopeCmd{
				ParentId:   caseInstance.Id,
				ActivityId: "humanTask1",
				WorkerId:   testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorInvalidArgument)

			// when
			_, err = e.CreateChildScope(context.Background(), engine.CreateChildScopeCmd{
				ParentId:   caseInstance.Id,
				ActivityId: "notExisting",
				WorkerId:   testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorNotFound)
		})

		t.Run(engineTypes[i]+"returns error when tenant does not match", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			caseInstance := ciAssert.CaseInstance()

			// when
			_, err := e.CreateChildScope(context.Background(), engine.CreateChildScopeCmd{
				ParentId:   caseInstance.Id,
				ActivityId: "milestone",
				TenantId:   "tenant1",
				WorkerId:   testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorInvalidArgument)
		})

		t.Run(engineTypes[i]+"returns error when parent not exists", func(t *testing.T) {
			// when
			_, err := e.CreateChildScope(context.Background(), engine.CreateChildScopeCmd{
				ParentId:   -1,
				ActivityId: "milestone",
				WorkerId:   testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorNotFound)
		})
	}
}
