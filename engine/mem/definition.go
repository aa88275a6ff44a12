package mem

import (
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type definitionKey struct {
	key      string
	tenantId pgtype.Text
}

type definitionRepository struct {
	entities map[int64]internal.DefinitionEntity

	jobs   *jobRepository
	scopes *scopeRepository
}

func (r *definitionRepository) Insert(entity *internal.DefinitionEntity) error {
	r.entities[entity.Id] = *entity
	return nil
}

func (r *definitionRepository) Select(id int64) (*internal.DefinitionEntity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &e, nil
}

func (r *definitionRepository) SelectLatestVersion(key string, tenantId pgtype.Text) (int, error) {
	return r.latestVersions()[definitionKey{key, tenantId}], nil
}

// latestVersions returns the latest version per key and tenant.
func (r *definitionRepository) latestVersions() map[definitionKey]int {
	versions := make(map[definitionKey]int)
	for _, e := range r.entities {
		k := definitionKey{e.Key, e.TenantId}
		if e.Version > versions[k] {
			versions[k] = e.Version
		}
	}
	return versions
}

func (r *definitionRepository) Query(c engine.DefinitionCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Definition, error) {
	var latestVersions map[definitionKey]int
	if c.LatestVersion {
		latestVersions = r.latestVersions()
	}

	results := make([]engine.Definition, 0)
	for _, e := range r.entities {
		if c.Id != 0 && c.Id != e.Id {
			continue
		}
		if c.DeploymentId != 0 && c.DeploymentId != e.DeploymentId {
			continue
		}
		if c.Key != "" && c.Key != e.Key {
			continue
		}
		if c.Version != 0 && c.Version != e.Version {
			continue
		}
		if c.LatestVersion && latestVersions[definitionKey{e.Key, e.TenantId}] != e.Version {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		results = append(results, e.Definition())
	}

	return sortAndPage(results, o, func(v engine.Definition) sortKey {
		return sortKey{id: v.Id, tenantId: v.TenantId, version: v.Version}
	}), nil
}

func (r *definitionRepository) QueryStatistics(c engine.DefinitionStatisticsCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.DefinitionStatistics, error) {
	instances := make(map[int64]int)
	for _, e := range r.scopes.entities {
		if e.Id == e.CaseInstanceId && !e.State.IsTerminal() {
			instances[e.DefinitionId]++
		}
	}

	failedJobs := make(map[int64]int)
	for _, e := range r.jobs.entities {
		if e.Job().IsFailed() {
			failedJobs[e.DefinitionId]++
		}
	}

	results := make([]engine.DefinitionStatistics, 0)
	for _, e := range r.entities {
		if c.Key != "" && c.Key != e.Key {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		results = append(results, engine.DefinitionStatistics{
			DefinitionId: e.Id,

			FailedJobs: failedJobs[e.Id],
			Instances:  instances[e.Id],
			Key:        e.Key,
			TenantId:   e.TenantId.String,
			Version:    e.Version,
		})
	}

	return sortAndPage(results, o, func(v engine.DefinitionStatistics) sortKey {
		return sortKey{id: v.DefinitionId, tenantId: v.TenantId, version: v.Version}
	}), nil
}
