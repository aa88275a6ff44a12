package internal

import (
	"testing"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCmd(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	t.Run("valid", func(t *testing.T) {
		err := validateCmd("title", engine.CreateBatchCmd{
			Type:            engine.BatchSuspend,
			CaseInstanceIds: []int64{1, 2},
			Schedule:        "0 0 * * *",
			WorkerId:        "test-worker",
		})
		assert.Nil(err)
	})

	t.Run("invalid", func(t *testing.T) {
		err := validateCmd("title", engine.CreateBatchCmd{
			Type:            engine.BatchSetVariables,
			CaseInstanceIds: []int64{1, 0},
			Variables:       map[string]any{"a b": 1},
			Schedule:        "* *",
		})

		engineErr, ok := err.(engine.Error)
		require.True(ok)
		assert.Equal(engine.ErrorValidation, engineErr.Type)
		assert.Equal("title", engineErr.Title)

		require.Len(engineErr.Causes, 4)
		assert.Equal(engine.ErrorCause{
			Pointer: "/caseInstanceIds/1",
			Type:    "gt",
			Detail:  "must be greater than 0",
		}, engineErr.Causes[0])
		assert.Equal(engine.ErrorCause{
			Pointer: "/variables/a b",
			Type:    "variable_name",
			Detail:  "must match regex ^[a-zA-Z0-9_-]+$",
		}, engineErr.Causes[1])
		assert.Equal(engine.ErrorCause{
			Pointer: "/schedule",
			Type:    "cron",
			Detail:  "CRON expression * * is invalid",
		}, engineErr.Causes[2])
		assert.Equal(engine.ErrorCause{
			Pointer: "/workerId",
			Type:    "required",
			Detail:  "is required",
		}, engineErr.Causes[3])
	})

	t.Run("excluded with", func(t *testing.T) {
		err := validateCmd("title", engine.CreateCaseInstanceCmd{
			DefinitionKey:   "key",
			TenantId:        "tenant1",
			WithoutTenantId: true,
			WorkerId:        "test-worker",
		})

		engineErr, ok := err.(engine.Error)
		require.True(ok)
		require.Len(engineErr.Causes, 1)
		assert.Equal("/tenantId", engineErr.Causes[0].Pointer)
		assert.Equal("excluded_with", engineErr.Causes[0].Type)
	})
}

func TestNamespacePointer(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("/", namespacePointer("CreateBatchCmd"))
	assert.Equal("/workerId", namespacePointer("CreateBatchCmd.workerId"))
	assert.Equal("/resources/0/name", namespacePointer("CreateDeploymentCmd.resources[0].name"))
}
