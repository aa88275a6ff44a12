package mem

import (
	"cmp"
	"context"
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
)

type query struct {
	e *memEngine

	defaultQueryLimit int
	options           engine.QueryOptions
}

func (q *query) QueryBatches(ctx context.Context, criteria engine.BatchCriteria) ([]engine.Batch, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.Batches().Query(criteria, q.options, filter)
}

func (q *query) QueryDefinitions(ctx context.Context, criteria engine.DefinitionCriteria) ([]engine.Definition, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.Definitions().Query(criteria, q.options, filter)
}

func (q *query) QueryDefinitionStatistics(ctx context.Context, criteria engine.DefinitionStatisticsCriteria) ([]engine.DefinitionStatistics, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.Definitions().QueryStatistics(criteria, q.options, filter)
}

func (q *query) QueryDeployments(ctx context.Context, criteria engine.DeploymentCriteria) ([]engine.Deployment, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.Deployments().Query(criteria, q.options, filter)
}

func (q *query) QueryJobs(ctx context.Context, criteria engine.JobCriteria) ([]engine.Job, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.Jobs().Query(criteria, q.options, filter)
}

func (q *query) QueryOperationLog(ctx context.Context, criteria engine.OperationLogCriteria) ([]engine.OperationLogEntry, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.OperationLog().Query(criteria, q.options, filter)
}

func (q *query) QueryScopes(ctx context.Context, criteria engine.ScopeCriteria) ([]engine.Scope, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.Scopes().Query(criteria, q.options, filter)
}

func (q *query) QueryTasks(ctx context.Context, criteria engine.TaskCriteria) ([]engine.Task, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.Tasks().Query(criteria, q.options, filter)
}

func (q *query) QueryVariables(ctx context.Context, criteria engine.VariableCriteria) ([]engine.Variable, error) {
	defer q.e.runlock()
	memCtx := q.e.rlock(ctx)

	filter, err := internal.NewTenantFilter(memCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, err
	}
	return memCtx.Variables().Query(criteria, q.options, filter)
}

func (q *query) SetOptions(options engine.QueryOptions) {
	if options.Limit <= 0 {
		options.Limit = q.defaultQueryLimit
	}

	q.options = options
}

// sortKey provides the properties, query results can be ordered by.
type sortKey struct {
	id       int64
	tenantId string
	version  int
}

// sortAndPage orders the results and applies offset and limit.
// When ordered by tenant ID, results without tenant (an empty tenant ID) come first.
func sortAndPage[T any](results []T, o engine.QueryOptions, key func(T) sortKey) []T {
	slices.SortFunc(results, func(a T, b T) int {
		ka, kb := key(a), key(b)

		var c int
		switch o.OrderBy {
		case engine.OrderByTenantId:
			c = cmp.Compare(ka.tenantId, kb.tenantId)
		case engine.OrderByVersion:
			c = cmp.Compare(ka.version, kb.version)
		}
		if c == 0 {
			c = cmp.Compare(ka.id, kb.id)
		}
		if o.Desc {
			return -c
		}
		return c
	})

	offset := max(o.Offset, 0)
	if offset >= len(results) {
		return results[:0]
	}
	results = results[offset:]

	if o.Limit > 0 && o.Limit < len(results) {
		results = results[:o.Limit]
	}
	return results
}
