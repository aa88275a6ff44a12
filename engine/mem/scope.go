package mem

import (
	"cmp"
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type scopeRepository struct {
	entities map[int64]internal.ScopeEntity
}

func (r *scopeRepository) Insert(entity *internal.ScopeEntity) error {
	r.entities[entity.Id] = *entity
	return nil
}

func (r *scopeRepository) Select(id int64) (*internal.ScopeEntity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (r *scopeRepository) SelectByCaseInstance(caseInstanceId int64) ([]*internal.ScopeEntity, error) {
	var results []*internal.ScopeEntity
	for _, e := range r.entities {
		if e.CaseInstanceId == caseInstanceId {
			results = append(results, &e)
		}
	}

	slices.SortFunc(results, func(a *internal.ScopeEntity, b *internal.ScopeEntity) int {
		return cmp.Compare(a.Id, b.Id)
	})
	return results, nil
}

func (r *scopeRepository) Update(entity *internal.ScopeEntity) error {
	if _, ok := r.entities[entity.Id]; !ok {
		return pgx.ErrNoRows
	}
	r.entities[entity.Id] = *entity
	return nil
}

func (r *scopeRepository) Delete(id int64) error {
	delete(r.entities, id)
	return nil
}

func (r *scopeRepository) Query(c engine.ScopeCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Scope, error) {
	results := make([]engine.Scope, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.CaseInstanceId != 0 && c.CaseInstanceId != e.CaseInstanceId {
			continue
		}
		if c.DefinitionId != 0 && c.DefinitionId != e.DefinitionId {
			continue
		}
		if c.ParentId != 0 && c.ParentId != e.ParentId.Int64 {
			continue
		}
		if c.ActivityId != "" && c.ActivityId != e.ActivityId {
			continue
		}
		if c.BusinessKey != "" && c.BusinessKey != e.BusinessKey.String {
			continue
		}
		if c.State != 0 && c.State != e.State {
			continue
		}
		if c.CaseInstancesOnly && e.Id != e.CaseInstanceId {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		results = append(results, e.Scope())
	}

	return sortAndPage(results, o, func(v engine.Scope) sortKey {
		return sortKey{id: v.Id, tenantId: v.TenantId}
	}), nil
}
