package internal

import (
	"fmt"
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/jackc/pgx/v5/pgtype"
)

// NewTenantFilter creates the tenant filter of a query, using the authentication of the context.
func NewTenantFilter(ctx Context, criteria engine.TenantCriteria) (TenantFilter, error) {
	if err := criteria.Validate(); err != nil {
		return TenantFilter{}, err
	}

	authentication, authenticated := engine.AuthenticationFrom(ctx.Context())

	return TenantFilter{
		CheckEnabled:  ctx.Options().TenantCheckEnabled,
		Authenticated: authenticated,
		TenantIds:     authentication.TenantIds,
		Criteria:      criteria,
	}, nil
}

// newCommandTenantFilter creates the tenant filter of a command.
// Commands are only checked, when the context carries an authentication - e.g. jobs are executed without.
func newCommandTenantFilter(ctx Context) TenantFilter {
	authentication, authenticated := engine.AuthenticationFrom(ctx.Context())

	return TenantFilter{
		CheckEnabled:  ctx.Options().TenantCheckEnabled && authenticated,
		Authenticated: authenticated,
		TenantIds:     authentication.TenantIds,
	}
}

// TenantFilter decides which entities are visible, based on their tenant ID.
type TenantFilter struct {
	CheckEnabled  bool     // If false, entities of all tenants are visible.
	Authenticated bool     // If false, only entities without tenant are visible.
	TenantIds     []string // Tenants of the authentication.

	Criteria engine.TenantCriteria
}

// IsVisible determines if an entity is within the visibility boundary of the authentication.
func (f TenantFilter) IsVisible(tenantId pgtype.Text) bool {
	if !f.CheckEnabled || !tenantId.Valid {
		return true
	}
	return f.Authenticated && slices.Contains(f.TenantIds, tenantId.String)
}

// Match determines if an entity is visible and matches the tenant criteria.
func (f TenantFilter) Match(tenantId pgtype.Text) bool {
	if !f.IsVisible(tenantId) {
		return false
	}

	c := f.Criteria
	switch {
	case c.WithoutTenantId:
		return !tenantId.Valid
	case c.TenantIds != nil && !tenantId.Valid:
		return c.IncludeWithoutTenantId
	case c.TenantIds != nil:
		return slices.Contains(c.TenantIds, tenantId.String)
	default:
		return true
	}
}

// checkAccess returns an error of type [engine.ErrorForbidden], if the tenant is not visible.
func (f TenantFilter) checkAccess(title string, tenantId pgtype.Text) error {
	if f.IsVisible(tenantId) {
		return nil
	}
	return engine.Error{
		Type:   engine.ErrorForbidden,
		Title:  title,
		Detail: fmt.Sprintf("tenant %s is not accessible", tenantId.String),
	}
}
