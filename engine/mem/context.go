package mem

import (
	"context"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
)

func newMemContext(options Options, services *internal.Services) *memContext {
	ctx := memContext{
		options:  options,
		services: services,

		batches:      &batchRepository{entities: make(map[int64]internal.BatchEntity)},
		definitions:  &definitionRepository{entities: make(map[int64]internal.DefinitionEntity)},
		deployments:  &deploymentRepository{entities: make(map[int64]internal.DeploymentEntity)},
		jobs:         &jobRepository{entities: make(map[int64]internal.JobEntity)},
		operationLog: &operationLogRepository{},
		resources:    &resourceRepository{entities: make(map[resourceKey]internal.ResourceEntity)},
		scopes:       &scopeRepository{entities: make(map[int64]internal.ScopeEntity)},
		tasks:        &taskRepository{entities: make(map[int64]internal.TaskEntity)},
		variables:    &variableRepository{entities: make(map[int64]internal.VariableEntity)},
	}

	ctx.definitions.scopes = ctx.scopes
	ctx.definitions.jobs = ctx.jobs

	return &ctx
}

// memContext provides access to the in-memory repositories. Since the repositories are shared, a copy of the
// context is handed out per lock, carrying the caller's context and the engine time.
type memContext struct {
	ctx      context.Context
	options  Options
	services *internal.Services
	time     time.Time

	batches      *batchRepository
	definitions  *definitionRepository
	deployments  *deploymentRepository
	jobs         *jobRepository
	operationLog *operationLogRepository
	resources    *resourceRepository
	scopes       *scopeRepository
	tasks        *taskRepository
	variables    *variableRepository
}

func (c *memContext) with(ctx context.Context, now time.Time) *memContext {
	memCtx := *c
	memCtx.ctx = ctx
	// must be UTC and truncated to millis (see engine/pg/pg.go:pgEngine#require)
	memCtx.time = now.UTC().Truncate(time.Millisecond)
	return &memCtx
}

func (c *memContext) Context() context.Context {
	return c.ctx
}

func (c *memContext) Options() engine.Options {
	return c.options.Common
}

func (c *memContext) Services() *internal.Services {
	return c.services
}

func (c *memContext) Time() time.Time {
	return c.time
}

func (c *memContext) Batches() internal.BatchRepository {
	return c.batches
}

func (c *memContext) Definitions() internal.DefinitionRepository {
	return c.definitions
}

func (c *memContext) Deployments() internal.DeploymentRepository {
	return c.deployments
}

func (c *memContext) Jobs() internal.JobRepository {
	return c.jobs
}

func (c *memContext) OperationLog() internal.OperationLogRepository {
	return c.operationLog
}

func (c *memContext) Resources() internal.ResourceRepository {
	return c.resources
}

func (c *memContext) Scopes() internal.ScopeRepository {
	return c.scopes
}

func (c *memContext) Tasks() internal.TaskRepository {
	return c.tasks
}

func (c *memContext) Variables() internal.VariableRepository {
	return c.variables
}

func (c *memContext) clear() {
	c.services.DefinitionCache.Clear()

	clear(c.batches.entities)
	clear(c.definitions.entities)
	clear(c.deployments.entities)
	clear(c.jobs.entities)
	c.operationLog.entities = nil
	clear(c.resources.entities)
	clear(c.scopes.entities)
	clear(c.tasks.entities)
	clear(c.variables.entities)
}
