package test

import (
	"context"
	"testing"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scriptResourceModel = `cases:
  - id: scriptResourceCase
    planModel:
      id: casePlanModel
      listeners:
        - event: create
          script:
            format: javascript
            resource: create.js
      children:
        - id: humanTask
          type: humanTask
`

func TestCreateDeployment(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	engines, engineTypes := mustCreateEngines(t)
	for _, e := range engines {
		defer e.Shutdown()
	}

	for i, e := range engines {
		t.Run(engineTypes[i]+"deploy case models", func(t *testing.T) {
			// when
			deployment, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
				Name: "test-deployment",
				Resources: []engine.Resource{
					{Name: "one-task.yaml", Content: mustReadCmmnFile(t, "one-task.yaml")},
					{Name: "stage.yaml", Content: mustReadCmmnFile(t, "stage.yaml")},
				},
				WorkerId: testWorkerId,
			})
			require.NoError(err)

			// then
			assert.NotEmpty(deployment.Id)
			assert.Equal("test-deployment", deployment.Name)
			assert.Equal(testWorkerId, deployment.CreatedBy)
			assert.Empty(deployment.TenantId)

			require.Len(deployment.Definitions, 2)

			definition := deployment.Definitions[0]
			assert.Equal(deployment.Id, definition.DeploymentId)
			assert.Equal("oneTaskCase", definition.Key)
			assert.Equal("One task case", definition.Name)
			assert.Equal("one-task.yaml", definition.ResourceName)
			assert.Equal(1, definition.Version)
			assert.Equal("stage.yaml", deployment.Definitions[1].ResourceName)

			deployments, err := e.CreateQuery().QueryDeployments(context.Background(), engine.DeploymentCriteria{Id: deployment.Id})
			require.NoError(err)
			require.Len(deployments, 1)
			assert.Equal("test-deployment", deployments[0].Name)
			assert.Empty(deployments[0].Definitions)

			definitions, err := e.CreateQuery().QueryDefinitions(context.Background(), engine.DefinitionCriteria{DeploymentId: deployment.Id})
			require.NoError(err)
			assert.Len(definitions, 2)

			entries, err := e.CreateQuery().QueryOperationLog(context.Background(), engine.OperationLogCriteria{Operation: "CREATE_DEPLOYMENT"})
			require.NoError(err)
			assert.NotEmpty(entries)
		})

		t.Run(engineTypes[i]+"increases version per key and tenant", func(t *testing.T) {
			// when
			definition1 := mustDeploy(t, e, "", "one-task.yaml").Definitions[0]
			definition2 := mustDeploy(t, e, "tenant1", "one-task.yaml").Definitions[0]
			definition3 := mustDeploy(t, e, "tenant1", "one-task.yaml").Definitions[0]

			// then
			assert.Equal(2, definition1.Version)
			assert.Equal(1, definition2.Version)
			assert.Equal("tenant1", definition2.TenantId)
			assert.Equal(2, definition3.Version)

			q := e.CreateQuery()
			q.SetOptions(engine.QueryOptions{OrderBy: engine.OrderByVersion, Desc: true})

			definitions, err := q.QueryDefinitions(context.Background(), engine.DefinitionCriteria{Key: "oneTaskCase"})
			require.NoError(err)
			require.Len(definitions, 2)
			assert.Equal(definition1.Id, definitions[0].Id)
		})

		t.Run(engineTypes[i]+"deploy script resource", func(t *testing.T) {
			// given
			deployment, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
				Name: "script-deployment",
				Resources: []engine.Resource{
					{Name: "script-resource.yaml", Content: scriptResourceModel},
					{Name: "create.js", Content: `caseExecution.setVariable("fromResource", true)`},
				},
				WorkerId: testWorkerId,
			})
			require.NoError(err)
			require.Len(deployment.Definitions, 1)

			// when
			ciAssert := mustCreateCaseInstance(t, e, deployment.Definitions[0], nil)

			// then
			ciAssert.HasVariable("fromResource", true)
		})

		t.Run(engineTypes[i]+"returns error when script resource is missing", func(t *testing.T) {
			// when
			_, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
				Name: "script-deployment",
				Resources: []engine.Resource{
					{Name: "script-resource.yaml", Content: scriptResourceModel},
				},
				WorkerId: testWorkerId,
			})

			// then
			engineErr := assertEngineError(t, err, engine.ErrorValidation)
			require.Len(engineErr.Causes, 1)
			assert.Equal("/resources/0/scriptResourceCase", engineErr.Causes[0].Pointer)
			assert.Equal("resource", engineErr.Causes[0].Type)
			assert.Contains(engineErr.Causes[0].Detail, "create.js")
		})

		t.Run(engineTypes[i]+"returns error when case model is invalid", func(t *testing.T) {
			// when
			_, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
				Name: "invalid-deployment",
				Resources: []engine.Resource{
					{Name: "one-task.yaml", Content: mustReadCmmnFile(t, "one-task.yaml")},
					{Name: "plan-item-type.yaml", Content: mustReadCmmnFile(t, "invalid/plan-item-type.yaml")},
				},
				WorkerId: testWorkerId,
			})

			// then
			engineErr := assertEngineError(t, err, engine.ErrorValidation)
			require.Len(engineErr.Causes, 2)
			assert.Equal("/resources/1/invalidCase/casePlanModel/unknown", engineErr.Causes[0].Pointer)
			assert.Equal("type", engineErr.Causes[0].Type)
			assert.Equal("/resources/1/invalidCase/casePlanModel/task", engineErr.Causes[1].Pointer)
			assert.Equal("children", engineErr.Causes[1].Type)

			deployments, err := e.CreateQuery().QueryDeployments(context.Background(), engine.DeploymentCriteria{Name: "invalid-deployment"})
			require.NoError(err)
			assert.Empty(deployments)
		})

		t.Run(engineTypes[i]+"returns error when YAML is malformed", func(t *testing.T) {
			// when
			_, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
				Name: "invalid-deployment",
				Resources: []engine.Resource{
					{Name: "malformed.yaml", Content: "cases: ["},
				},
				WorkerId: testWorkerId,
			})

			// then
			engineErr := assertEngineError(t, err, engine.ErrorValidation)
			require.Len(engineErr.Causes, 1)
			assert.Equal("/resources/0", engineErr.Causes[0].Pointer)
			assert.Equal("yaml", engineErr.Causes[0].Type)
		})

		t.Run(engineTypes[i]+"returns error when case is defined twice", func(t *testing.T) {
			// when
			_, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
				Name: "invalid-deployment",
				Resources: []engine.Resource{
					{Name: "a.yaml", Content: mustReadCmmnFile(t, "one-task.yaml")},
					{Name: "b.yaml", Content: mustReadCmmnFile(t, "one-task.yaml")},
				},
				WorkerId: testWorkerId,
			})

			// then
			engineErr := assertEngineError(t, err, engine.ErrorValidation)
			require.Len(engineErr.Causes, 1)
			assert.Equal("/resources/1/oneTaskCase", engineErr.Causes[0].Pointer)
			assert.Equal("unique", engineErr.Causes[0].Type)
		})

		t.Run(engineTypes[i]+"returns error when command is invalid", func(t *testing.T) {
			// when
			_, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
				Name:     "invalid-deployment",
				TenantId: "invalid tenant",
				WorkerId: testWorkerId,
			})

			// then
			engineErr := assertEngineError(t, err, engine.ErrorValidation)
			assert.Len(engineErr.Causes, 2)
		})
	}
}
