package mem

import (
	"cmp"
	"slices"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type jobRepository struct {
	entities map[int64]internal.JobEntity
}

func (r *jobRepository) Insert(entity *internal.JobEntity) error {
	r.entities[entity.Id] = *entity
	return nil
}

func (r *jobRepository) Select(id int64) (*internal.JobEntity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (r *jobRepository) SelectDue(batchId int64, dueAt time.Time, limit int) ([]*internal.JobEntity, error) {
	var results []*internal.JobEntity
	for _, e := range r.entities {
		if e.CompletedAt.Valid || e.DueAt.After(dueAt) {
			continue
		}
		if batchId != 0 && batchId != e.BatchId {
			continue
		}

		results = append(results, &e)
	}

	slices.SortFunc(results, func(a *internal.JobEntity, b *internal.JobEntity) int {
		if c := a.DueAt.Compare(b.DueAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})

	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (r *jobRepository) CountOpen(batchId int64) (int, error) {
	var count int
	for _, e := range r.entities {
		if e.BatchId == batchId && !e.CompletedAt.Valid {
			count++
		}
	}
	return count, nil
}

func (r *jobRepository) Update(entity *internal.JobEntity) error {
	if _, ok := r.entities[entity.Id]; !ok {
		return pgx.ErrNoRows
	}
	r.entities[entity.Id] = *entity
	return nil
}

func (r *jobRepository) Query(c engine.JobCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Job, error) {
	results := make([]engine.Job, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.BatchId != 0 && c.BatchId != e.BatchId {
			continue
		}
		if c.CaseInstanceId != 0 && c.CaseInstanceId != e.CaseInstanceId {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		job := e.Job()
		if c.Failed && !job.IsFailed() {
			continue
		}

		results = append(results, job)
	}

	return sortAndPage(results, o, func(v engine.Job) sortKey {
		return sortKey{id: v.Id, tenantId: v.TenantId}
	}), nil
}
