package pg

import (
	"strings"
	"testing"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantCondition(t *testing.T) {
	tests := []struct {
		name     string
		filter   internal.TenantFilter
		expected string
	}{
		{
			"check disabled",
			internal.TenantFilter{},
			"true",
		},
		{
			"check enabled and not authenticated",
			internal.TenantFilter{CheckEnabled: true, TenantIds: []string{"a"}},
			"tenant_id IS NULL",
		},
		{
			"check enabled and authenticated",
			internal.TenantFilter{CheckEnabled: true, Authenticated: true, TenantIds: []string{"a", "b"}},
			"(tenant_id IS NULL OR tenant_id IN ('a','b'))",
		},
		{
			"without tenant ID",
			internal.TenantFilter{Criteria: engine.TenantCriteria{WithoutTenantId: true}},
			"tenant_id IS NULL",
		},
		{
			"tenant IDs",
			internal.TenantFilter{Criteria: engine.TenantCriteria{TenantIds: []string{"a"}}},
			"tenant_id IN ('a')",
		},
		{
			"empty tenant IDs",
			internal.TenantFilter{Criteria: engine.TenantCriteria{TenantIds: []string{}}},
			"false",
		},
		{
			"tenant IDs including without tenant ID",
			internal.TenantFilter{Criteria: engine.TenantCriteria{TenantIds: []string{"a"}, IncludeWithoutTenantId: true}},
			"(tenant_id IS NULL OR tenant_id IN ('a'))",
		},
		{
			"check enabled and tenant IDs",
			internal.TenantFilter{
				CheckEnabled:  true,
				Authenticated: true,
				TenantIds:     []string{"a"},
				Criteria:      engine.TenantCriteria{TenantIds: []string{"b"}},
			},
			"(tenant_id IS NULL OR tenant_id IN ('a')) AND tenant_id IN ('b')",
		},
		{
			"quotes tenant IDs",
			internal.TenantFilter{Criteria: engine.TenantCriteria{TenantIds: []string{"a'b"}}},
			"tenant_id IN ('a''b')",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, tenantCondition("tenant_id", test.filter))
		})
	}
}

func TestOrderBy(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("id ASC", orderBy("", engine.QueryOptions{}, false))
	assert.Equal("id DESC", orderBy("", engine.QueryOptions{Desc: true}, false))

	assert.Equal("tenant_id ASC NULLS FIRST, id ASC", orderBy("", engine.QueryOptions{OrderBy: engine.OrderByTenantId}, false))
	assert.Equal("d.tenant_id DESC NULLS LAST, d.id DESC", orderBy("d.", engine.QueryOptions{OrderBy: engine.OrderByTenantId, Desc: true}, true))

	assert.Equal("d.version ASC, d.id ASC", orderBy("d.", engine.QueryOptions{OrderBy: engine.OrderByVersion}, true))
	assert.Equal("id ASC", orderBy("", engine.QueryOptions{OrderBy: engine.OrderByVersion}, false))
}

func TestLimitOffset(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", limitOffset(engine.QueryOptions{}))
	assert.Equal("LIMIT 10", limitOffset(engine.QueryOptions{Limit: 10}))
	assert.Equal("LIMIT 10 OFFSET 5", limitOffset(engine.QueryOptions{Limit: 10, Offset: 5}))
	assert.Equal("OFFSET 5", limitOffset(engine.QueryOptions{Offset: 5}))
}

func TestRenderQuery(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	t.Run("scope query", func(t *testing.T) {
		// given
		c := engine.ScopeCriteria{
			CaseInstanceId: 1,
			ActivityId:     "task'A",
			State:          engine.ScopeActive,
		}
		f := internal.TenantFilter{Criteria: engine.TenantCriteria{WithoutTenantId: true}}

		// when
		sql, err := renderQuery(sqlScopeQuery, c, engine.QueryOptions{Limit: 2}, f)
		require.Nil(err)

		// then
		assert.Contains(sql, "tenant_id IS NULL")
		assert.Contains(sql, "AND case_instance_id = 1")
		assert.Contains(sql, "AND activity_id = 'task''A'")
		assert.Contains(sql, "AND state = 'ACTIVE'")
		assert.Contains(sql, "LIMIT 2")
		assert.NotContains(sql, "parent_id =")
		assert.NotContains(sql, "AND id = case_instance_id")
	})

	t.Run("definition query", func(t *testing.T) {
		// given
		c := engine.DefinitionCriteria{Key: "case", LatestVersion: true}

		// when
		sql, err := renderQuery(sqlDefinitionQuery, c, engine.QueryOptions{OrderBy: engine.OrderByVersion, Desc: true}, internal.TenantFilter{})
		require.Nil(err)

		// then
		assert.Contains(sql, "AND d.key = 'case'")
		assert.Contains(sql, "MAX(l.version)")
		assert.Contains(sql, "d.version DESC, d.id DESC")
		assert.False(strings.Contains(sql, "LIMIT"))
	})

	t.Run("variable query", func(t *testing.T) {
		// given
		c := engine.VariableCriteria{ScopeId: 3, Names: []string{"a", "b"}}

		// when
		sql, err := renderQuery(sqlVariableQuery, c, engine.QueryOptions{}, internal.TenantFilter{})
		require.Nil(err)

		// then
		assert.Contains(sql, "AND scope_id = 3")
		assert.Contains(sql, "AND name IN ('a','b')")
	})
}
