package internal

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type BatchEntity struct {
	Id int64

	CompletedAt pgtype.Timestamp
	CreatedAt   time.Time
	CreatedBy   string
	TenantId    pgtype.Text
	TotalJobs   int
	Type        engine.BatchType
	Variables   pgtype.Text // Encoded variables of a SET_VARIABLES batch.
}

func (e BatchEntity) Batch() engine.Batch {
	return engine.Batch{
		Id: e.Id,

		CompletedAt: timeOrNil(e.CompletedAt),
		CreatedAt:   e.CreatedAt,
		CreatedBy:   e.CreatedBy,
		TenantId:    e.TenantId.String,
		TotalJobs:   e.TotalJobs,
		Type:        e.Type,
	}
}

type BatchRepository interface {
	Insert(*BatchEntity) error
	Select(id int64) (*BatchEntity, error)
	Update(*BatchEntity) error

	Query(engine.BatchCriteria, engine.QueryOptions, TenantFilter) ([]engine.Batch, error)
}

func CreateBatch(ctx Context, cmd engine.CreateBatchCmd) (engine.Batch, error) {
	const title = "failed to create batch"

	if err := validateCmd(title, cmd); err != nil {
		return engine.Batch{}, err
	}

	var variables pgtype.Text
	if cmd.Type == engine.BatchSetVariables {
		if len(cmd.Variables) == 0 {
			return engine.Batch{}, engine.Error{
				Type:   engine.ErrorValidation,
				Title:  title,
				Detail: "invalid command",
				Causes: []engine.ErrorCause{{
					Pointer: "/variables",
					Type:    "required",
					Detail:  fmt.Sprintf("is required for batch type %s", cmd.Type),
				}},
			}
		}

		encoded, err := EncodeValues(cmd.Variables)
		if err != nil {
			return engine.Batch{}, engine.Error{
				Type:   engine.ErrorValidation,
				Title:  title,
				Detail: fmt.Sprintf("invalid variables: %v", err),
			}
		}
		variables = text(encoded)
	}

	dueAt := ctx.Time()
	if cmd.Schedule != "" {
		nextTick, err := gronx.NextTickAfter(cmd.Schedule, ctx.Time(), false)
		if err != nil {
			return engine.Batch{}, engine.Error{
				Type:   engine.ErrorValidation,
				Title:  title,
				Detail: fmt.Sprintf("failed to evaluate schedule %s: %v", cmd.Schedule, err),
			}
		}
		dueAt = nextTick.UTC().Truncate(time.Millisecond)
	}

	filter := newCommandTenantFilter(ctx)

	caseInstances := make([]*ScopeEntity, len(cmd.CaseInstanceIds))
	for i, caseInstanceId := range cmd.CaseInstanceIds {
		scope, err := ctx.Scopes().Select(caseInstanceId)
		if err == pgx.ErrNoRows || (err == nil && scope.Id != scope.CaseInstanceId) {
			return engine.Batch{}, engine.Error{
				Type:   engine.ErrorNotFound,
				Title:  title,
				Detail: fmt.Sprintf("case instance %d could not be found", caseInstanceId),
			}
		}
		if err != nil {
			return engine.Batch{}, err
		}
		if err := filter.checkAccess(title, scope.TenantId); err != nil {
			return engine.Batch{}, err
		}

		caseInstances[i] = scope
	}

	// a batch has a tenant, when all of its case instances have the same tenant
	tenantId := caseInstances[0].TenantId
	for _, caseInstance := range caseInstances[1:] {
		if caseInstance.TenantId != tenantId {
			tenantId = pgtype.Text{}
			break
		}
	}

	batch := BatchEntity{
		Id: ctx.Services().NextId(),

		CreatedAt: ctx.Time(),
		CreatedBy: cmd.WorkerId,
		TenantId:  tenantId,
		TotalJobs: len(caseInstances),
		Type:      cmd.Type,
		Variables: variables,
	}

	if err := ctx.Batches().Insert(&batch); err != nil {
		return engine.Batch{}, err
	}

	for _, caseInstance := range caseInstances {
		job := JobEntity{
			Id: ctx.Services().NextId(),

			BatchId:        batch.Id,
			CaseInstanceId: caseInstance.Id,
			DefinitionId:   caseInstance.DefinitionId,

			CreatedAt:   ctx.Time(),
			CreatedBy:   cmd.WorkerId,
			DueAt:       dueAt,
			RetriesLeft: ctx.Options().JobRetryLimit,
			TenantId:    caseInstance.TenantId,
			Type:        cmd.Type,
		}

		if err := ctx.Jobs().Insert(&job); err != nil {
			return engine.Batch{}, err
		}
	}

	if err := logOperation(ctx, OperationLogEntity{
		EntityId:   batch.Id,
		EntityType: EntityBatch,
		Operation:  OperationCreateBatch,
		TenantId:   batch.TenantId,
		WorkerId:   cmd.WorkerId,
	}); err != nil {
		return engine.Batch{}, err
	}

	return batch.Batch(), nil
}
