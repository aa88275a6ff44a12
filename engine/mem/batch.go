package mem

import (
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type batchRepository struct {
	entities map[int64]internal.BatchEntity
}

func (r *batchRepository) Insert(entity *internal.BatchEntity) error {
	r.entities[entity.Id] = *entity
	return nil
}

func (r *batchRepository) Select(id int64) (*internal.BatchEntity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (r *batchRepository) Update(entity *internal.BatchEntity) error {
	if _, ok := r.entities[entity.Id]; !ok {
		return pgx.ErrNoRows
	}
	r.entities[entity.Id] = *entity
	return nil
}

func (r *batchRepository) Query(c engine.BatchCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Batch, error) {
	results := make([]engine.Batch, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.Type != 0 && c.Type != e.Type {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		results = append(results, e.Batch())
	}

	return sortAndPage(results, o, func(v engine.Batch) sortKey {
		return sortKey{id: v.Id, tenantId: v.TenantId}
	}), nil
}
