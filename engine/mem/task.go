package mem

import (
	"cmp"
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
)

type taskRepository struct {
	entities map[int64]internal.TaskEntity
}

func (r *taskRepository) Insert(entity *internal.TaskEntity) error {
	r.entities[entity.Id] = *entity
	return nil
}

func (r *taskRepository) SelectByCaseInstance(caseInstanceId int64) ([]*internal.TaskEntity, error) {
	var results []*internal.TaskEntity
	for _, e := range r.entities {
		if e.CaseInstanceId == caseInstanceId {
			results = append(results, &e)
		}
	}

	slices.SortFunc(results, func(a *internal.TaskEntity, b *internal.TaskEntity) int {
		return cmp.Compare(a.Id, b.Id)
	})
	return results, nil
}

func (r *taskRepository) Delete(id int64) error {
	delete(r.entities, id)
	return nil
}

func (r *taskRepository) Query(c engine.TaskCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Task, error) {
	results := make([]engine.Task, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.CaseInstanceId != 0 && c.CaseInstanceId != e.CaseInstanceId {
			continue
		}
		if c.ActivityId != "" && c.ActivityId != e.ActivityId {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		results = append(results, e.Task())
	}

	return sortAndPage(results, o, func(v engine.Task) sortKey {
		return sortKey{id: v.Id, tenantId: v.TenantId}
	}), nil
}
