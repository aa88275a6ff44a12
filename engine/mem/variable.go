package mem

import (
	"cmp"
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type variableRepository struct {
	entities map[int64]internal.VariableEntity
}

func (r *variableRepository) Insert(entity *internal.VariableEntity) error {
	r.entities[entity.Id] = *entity
	return nil
}

func (r *variableRepository) SelectByCaseInstance(caseInstanceId int64) ([]*internal.VariableEntity, error) {
	var results []*internal.VariableEntity
	for _, e := range r.entities {
		if e.CaseInstanceId == caseInstanceId {
			results = append(results, &e)
		}
	}

	slices.SortFunc(results, func(a *internal.VariableEntity, b *internal.VariableEntity) int {
		return cmp.Compare(a.Id, b.Id)
	})
	return results, nil
}

func (r *variableRepository) Update(entity *internal.VariableEntity) error {
	if _, ok := r.entities[entity.Id]; !ok {
		return pgx.ErrNoRows
	}
	r.entities[entity.Id] = *entity
	return nil
}

func (r *variableRepository) Delete(id int64) error {
	delete(r.entities, id)
	return nil
}

func (r *variableRepository) Query(c engine.VariableCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Variable, error) {
	results := make([]engine.Variable, 0)
	for _, e := range r.entities {
		if c.CaseInstanceId != 0 && c.CaseInstanceId != e.CaseInstanceId {
			continue
		}
		if c.ScopeId != 0 && c.ScopeId != e.ScopeId {
			continue
		}
		if len(c.Names) != 0 && !slices.Contains(c.Names, e.Name) {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		results = append(results, e.Variable())
	}

	return sortAndPage(results, o, func(v engine.Variable) sortKey {
		return sortKey{id: v.Id, tenantId: v.TenantId}
	}), nil
}
