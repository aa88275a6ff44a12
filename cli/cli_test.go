package cli

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelp(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	for _, args := range [][]string{
		{},
		{"batch"},
		{"case-instance"},
		{"definition"},
		{"deployment"},
		{"job"},
		{"scope"},
		{"task"},
		{"variable"},
		{"version"},
		{"deployment", "create", "--help"},
		{"set-time", "--help"},
	} {
		_, err := execute(e, args)
		assert.NoError(err, "args %v", args)
	}
}

func TestCaseInstance(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	// given
	out := mustExecute(t, e, []string{
		"deployment",
		"create",
		"--name",
		"test-deployment",
		"--file",
		"../test/cmmn/stage.yaml",
	})
	assert.Contains(out, "stageCase")

	var caseInstanceId int64

	t.Run("create", func(t *testing.T) {
		// when
		out := mustExecute(t, e, []string{
			"case-instance",
			"create",
			"--definition-key",
			"stageCase",
			"--business-key",
			"bk",
			"--variable",
			"a=1",
			"--variable",
			"b=text",
		})

		// then
		id, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
		require.NoError(err)
		caseInstanceId = id

		variables, err := e.GetVariables(context.Background(), engine.GetVariablesCmd{ScopeId: caseInstanceId})
		require.NoError(err)
		assert.Equal(map[string]any{"a": int64(1), "b": "text"}, variables)

		out = mustExecute(t, e, []string{"case-instance", "query", "--business-key", "bk"})
		assert.Contains(out, "casePlanModel")
		assert.Contains(out, "ACTIVE")
	})

	t.Run("transition", func(t *testing.T) {
		// given
		scopes, err := e.CreateQuery().QueryScopes(context.Background(), engine.ScopeCriteria{
			CaseInstanceId: caseInstanceId,
			ActivityId:     "humanTask1",
		})
		require.NoError(err)
		require.Len(scopes, 1)

		// when
		out := mustExecute(t, e, []string{
			"scope",
			"transition",
			"--id",
			strconv.FormatInt(scopes[0].Id, 10),
			"--transition",
			"SUSPEND",
		})

		// then
		assert.Equal("SUSPENDED\n", out)

		out = mustExecute(t, e, []string{"scope", "query", "--case-instance-id", strconv.FormatInt(caseInstanceId, 10), "--state", "SUSPENDED"})
		assert.Contains(out, "humanTask1")
	})

	t.Run("set and get variables", func(t *testing.T) {
		// when
		mustExecute(t, e, []string{
			"variable",
			"set",
			"--scope-id",
			strconv.FormatInt(caseInstanceId, 10),
			"--variable",
			`c={"x":true}`,
		})

		out := mustExecute(t, e, []string{
			"variable",
			"get",
			"--scope-id",
			strconv.FormatInt(caseInstanceId, 10),
			"--name",
			"a,c",
		})

		// then
		assert.Contains(out, "a      1")
		assert.Contains(out, `c      {"x":true}`)
		assert.NotContains(out, "text")

		// when
		mustExecute(t, e, []string{
			"variable",
			"remove",
			"--scope-id",
			strconv.FormatInt(caseInstanceId, 10),
			"--name",
			"c",
		})

		// then
		variables, err := e.GetVariables(context.Background(), engine.GetVariablesCmd{ScopeId: caseInstanceId})
		require.NoError(err)
		assert.NotContains(variables, "c")
	})

	t.Run("batch", func(t *testing.T) {
		// when
		out := mustExecute(t, e, []string{
			"batch",
			"create",
			"--type",
			"TERMINATE",
			"--case-instance-id",
			strconv.FormatInt(caseInstanceId, 10),
		})
		assert.NotEmpty(strings.TrimSpace(out))

		out = mustExecute(t, e, []string{"job", "execute-due"})

		// then
		assert.Equal("completed: 1, failed: 0\n", out)

		scopes, err := e.CreateQuery().QueryScopes(context.Background(), engine.ScopeCriteria{Id: caseInstanceId})
		require.NoError(err)
		require.Len(scopes, 1)
		assert.Equal(engine.ScopeTerminated, scopes[0].State)
	})

	t.Run("returns engine error", func(t *testing.T) {
		// when
		_, err := execute(e, []string{
			"scope",
			"transition",
			"--id",
			strconv.FormatInt(caseInstanceId, 10),
			"--transition",
			"COMPLETE",
		})

		// then
		engineErr, ok := err.(engine.Error)
		require.True(ok)
		assert.Equal(engine.ErrorIllegalState, engineErr.Type)
	})

	t.Run("returns error when flag is invalid", func(t *testing.T) {
		_, err := execute(e, []string{"scope", "transition", "--id", "1", "--transition", "UNKNOWN"})
		assert.Error(err)
	})
}

func TestAuthentication(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	// given
	mustExecute(t, e, []string{
		"deployment",
		"create",
		"--name",
		"tenant-deployment",
		"--tenant-id",
		"tenant1",
		"--file",
		"../test/cmmn/one-task.yaml",
	})

	// when
	withoutAuthentication := mustExecute(t, e, []string{"definition", "query"})
	withAuthentication := mustExecute(t, e, []string{"definition", "query", "--user-id", "u", "--tenant", "tenant1"})

	// then
	assert.NotContains(withoutAuthentication, "oneTaskCase")
	assert.Contains(withAuthentication, "oneTaskCase")
	assert.Contains(withAuthentication, "tenant1")
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	t.Run("valid", func(t *testing.T) {
		out := mustExecute(t, nil, []string{"validate", "--file", "../test/cmmn/stage.yaml"})
		assert.Contains(out, "stageCase:")
	})

	t.Run("invalid", func(t *testing.T) {
		out, err := execute(nil, []string{"validate", "--file", "../test/cmmn/invalid/plan-item-type.yaml"})
		assert.Error(err)
		assert.Contains(out, "/invalidCase/casePlanModel/unknown")
	})
}
