package pg

import (
	"context"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
)

type query struct {
	e *pgEngine

	defaultQueryLimit int
	options           engine.QueryOptions
}

func (q *query) QueryBatches(ctx context.Context, criteria engine.BatchCriteria) ([]engine.Batch, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.Batches().Query(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) QueryDefinitions(ctx context.Context, criteria engine.DefinitionCriteria) ([]engine.Definition, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.Definitions().Query(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) QueryDefinitionStatistics(ctx context.Context, criteria engine.DefinitionStatisticsCriteria) ([]engine.DefinitionStatistics, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.Definitions().QueryStatistics(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) QueryDeployments(ctx context.Context, criteria engine.DeploymentCriteria) ([]engine.Deployment, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.Deployments().Query(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) QueryJobs(ctx context.Context, criteria engine.JobCriteria) ([]engine.Job, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.Jobs().Query(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) QueryOperationLog(ctx context.Context, criteria engine.OperationLogCriteria) ([]engine.OperationLogEntry, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.OperationLog().Query(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) QueryScopes(ctx context.Context, criteria engine.ScopeCriteria) ([]engine.Scope, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.Scopes().Query(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) QueryTasks(ctx context.Context, criteria engine.TaskCriteria) ([]engine.Task, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.Tasks().Query(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) QueryVariables(ctx context.Context, criteria engine.VariableCriteria) ([]engine.Variable, error) {
	pgCtx, cancel, err := q.e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	filter, err := internal.NewTenantFilter(pgCtx, criteria.TenantCriteria)
	if err != nil {
		return nil, q.e.release(pgCtx, err)
	}
	results, err := pgCtx.Variables().Query(criteria, q.options, filter)
	return results, q.e.release(pgCtx, err)
}

func (q *query) SetOptions(options engine.QueryOptions) {
	if options.Limit <= 0 {
		options.Limit = q.defaultQueryLimit
	}

	q.options = options
}
