package engine

import (
	"context"
	"fmt"
)

type authenticationKey struct{}

// Authentication identifies a user and the tenants, the user is member of.
//
// A context without authentication sees only entities without tenant, as long as the tenant check is enabled.
// An authentication with an empty tenant list behaves the same way.
type Authentication struct {
	UserId    string
	TenantIds []string
}

// WithAuthentication returns a copy of the context, carrying the authentication.
func WithAuthentication(ctx context.Context, authentication Authentication) context.Context {
	return context.WithValue(ctx, authenticationKey{}, authentication)
}

// AuthenticationFrom returns the authentication of a context, if any.
func AuthenticationFrom(ctx context.Context) (Authentication, bool) {
	if ctx == nil {
		return Authentication{}, false
	}
	authentication, ok := ctx.Value(authenticationKey{}).(Authentication)
	return authentication, ok
}

// TenantCriteria narrow the results of a query by tenant.
//
// Tenant criteria never bypass the tenant check: an explicitly requested tenant, which is not visible to the
// authentication, yields no results.
type TenantCriteria struct {
	// TenantIds restricts the results to entities of the given tenants. A nil slice applies no restriction.
	TenantIds []string
	// WithoutTenantId restricts the results to entities without tenant.
	WithoutTenantId bool
	// IncludeWithoutTenantId adds entities without tenant, when TenantIds is set.
	IncludeWithoutTenantId bool
}

// TenantIdIn creates tenant criteria, which restrict the results to the given tenants.
//
// An error of type [ErrorInvalidArgument] is returned, when no tenant ID list or an empty tenant ID is provided.
func TenantIdIn(tenantIds ...string) (TenantCriteria, error) {
	c := TenantCriteria{TenantIds: tenantIds}
	if tenantIds == nil {
		return TenantCriteria{}, Error{
			Type:   ErrorInvalidArgument,
			Title:  "invalid tenant criteria",
			Detail: "tenant ID list is nil",
		}
	}
	if err := c.Validate(); err != nil {
		return TenantCriteria{}, err
	}
	return c, nil
}

// Validate checks that the tenant ID list does not contain empty elements and that the options do not contradict.
func (c TenantCriteria) Validate() error {
	for i, tenantId := range c.TenantIds {
		if tenantId == "" {
			return Error{
				Type:   ErrorInvalidArgument,
				Title:  "invalid tenant criteria",
				Detail: fmt.Sprintf("tenant ID #%d is empty", i),
			}
		}
	}
	if c.WithoutTenantId && c.TenantIds != nil {
		return Error{
			Type:   ErrorInvalidArgument,
			Title:  "invalid tenant criteria",
			Detail: "without tenant ID cannot be combined with a tenant ID list",
		}
	}
	if c.IncludeWithoutTenantId && c.TenantIds == nil {
		return Error{
			Type:   ErrorInvalidArgument,
			Title:  "invalid tenant criteria",
			Detail: "include without tenant ID requires a tenant ID list",
		}
	}
	return nil
}
