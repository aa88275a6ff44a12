package internal

import (
	"testing"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/stretchr/testify/assert"
)

func TestTenantFilter(t *testing.T) {
	assert := assert.New(t)

	tenant1 := text("tenant1")
	tenant2 := text("tenant2")
	withoutTenant := text("")

	t.Run("check disabled", func(t *testing.T) {
		f := TenantFilter{}

		assert.True(f.IsVisible(tenant1))
		assert.True(f.IsVisible(withoutTenant))
	})

	t.Run("not authenticated", func(t *testing.T) {
		f := TenantFilter{CheckEnabled: true}

		assert.False(f.IsVisible(tenant1))
		assert.True(f.IsVisible(withoutTenant))
	})

	t.Run("authenticated", func(t *testing.T) {
		f := TenantFilter{CheckEnabled: true, Authenticated: true, TenantIds: []string{"tenant1"}}

		assert.True(f.IsVisible(tenant1))
		assert.False(f.IsVisible(tenant2))
		assert.True(f.IsVisible(withoutTenant))
	})

	t.Run("tenant ID in", func(t *testing.T) {
		f := TenantFilter{
			CheckEnabled:  true,
			Authenticated: true,
			TenantIds:     []string{"tenant1", "tenant2"},
			Criteria:      engine.TenantCriteria{TenantIds: []string{"tenant2"}},
		}

		assert.False(f.Match(tenant1))
		assert.True(f.Match(tenant2))
		assert.False(f.Match(withoutTenant))

		f.Criteria.IncludeWithoutTenantId = true
		assert.True(f.Match(withoutTenant))
	})

	t.Run("tenant ID in does not bypass check", func(t *testing.T) {
		f := TenantFilter{
			CheckEnabled:  true,
			Authenticated: true,
			TenantIds:     []string{"tenant1"},
			Criteria:      engine.TenantCriteria{TenantIds: []string{"tenant2"}},
		}

		assert.False(f.Match(tenant2))
	})

	t.Run("without tenant ID", func(t *testing.T) {
		f := TenantFilter{
			CheckEnabled:  true,
			Authenticated: true,
			TenantIds:     []string{"tenant1"},
			Criteria:      engine.TenantCriteria{WithoutTenantId: true},
		}

		assert.False(f.Match(tenant1))
		assert.True(f.Match(withoutTenant))
	})

	t.Run("check access", func(t *testing.T) {
		f := TenantFilter{CheckEnabled: true, Authenticated: true, TenantIds: []string{"tenant1"}}

		assert.Nil(f.checkAccess("title", tenant1))

		err := f.checkAccess("title", tenant2)
		engineErr, ok := err.(engine.Error)
		assert.True(ok)
		assert.Equal(engine.ErrorForbidden, engineErr.Type)
		assert.Equal("tenant tenant2 is not accessible", engineErr.Detail)
	})
}
