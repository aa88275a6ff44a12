package mem

import (
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type deploymentRepository struct {
	entities map[int64]internal.DeploymentEntity
}

func (r *deploymentRepository) Insert(entity *internal.DeploymentEntity) error {
	r.entities[entity.Id] = *entity
	return nil
}

func (r *deploymentRepository) Select(id int64) (*internal.DeploymentEntity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (r *deploymentRepository) Query(c engine.DeploymentCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Deployment, error) {
	results := make([]engine.Deployment, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.Name != "" && c.Name != e.Name {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		results = append(results, e.Deployment())
	}

	return sortAndPage(results, o, func(v engine.Deployment) sortKey {
		return sortKey{id: v.Id, tenantId: v.TenantId}
	}), nil
}

type resourceKey struct {
	deploymentId int64
	name         string
}

type resourceRepository struct {
	entities map[resourceKey]internal.ResourceEntity
}

func (r *resourceRepository) Insert(entity *internal.ResourceEntity) error {
	r.entities[resourceKey{entity.DeploymentId, entity.Name}] = *entity
	return nil
}

func (r *resourceRepository) Select(deploymentId int64, name string) (*internal.ResourceEntity, error) {
	e, ok := r.entities[resourceKey{deploymentId, name}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}
