package pg

import (
	"context"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type pgContext struct {
	ctx      context.Context // context of the caller
	options  Options
	services *internal.Services

	time time.Time

	tx    pgx.Tx
	txCtx context.Context
}

func (c *pgContext) Context() context.Context {
	return c.ctx
}

func (c *pgContext) Options() engine.Options {
	return c.options.Common
}

func (c *pgContext) Services() *internal.Services {
	return c.services
}

func (c *pgContext) Time() time.Time {
	return c.time
}

func (c *pgContext) Batches() internal.BatchRepository {
	return &batchRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Definitions() internal.DefinitionRepository {
	return &definitionRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Deployments() internal.DeploymentRepository {
	return &deploymentRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Jobs() internal.JobRepository {
	return &jobRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) OperationLog() internal.OperationLogRepository {
	return &operationLogRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Resources() internal.ResourceRepository {
	return &resourceRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Scopes() internal.ScopeRepository {
	return &scopeRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Tasks() internal.TaskRepository {
	return &taskRepository{tx: c.tx, txCtx: c.txCtx}
}

func (c *pgContext) Variables() internal.VariableRepository {
	return &variableRepository{tx: c.tx, txCtx: c.txCtx}
}
