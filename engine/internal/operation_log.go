package internal

import (
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/jackc/pgx/v5/pgtype"
)

// Entity types of operation log entries.
const (
	EntityBatch        = "BATCH"
	EntityCaseInstance = "CASE_INSTANCE"
	EntityDeployment   = "DEPLOYMENT"
	EntityJob          = "JOB"
	EntityScope        = "SCOPE"
)

// Operations, recorded in addition to the scope transitions.
const (
	OperationCreateBatch        = "CREATE_BATCH"
	OperationCreateCaseInstance = "CREATE_CASE_INSTANCE"
	OperationCreateChildScope   = "CREATE_CHILD_SCOPE"
	OperationCreateDeployment   = "CREATE_DEPLOYMENT"
	OperationExecuteJob         = "EXECUTE_JOB"
	OperationRemoveVariables    = "REMOVE_VARIABLES"
	OperationSetVariables       = "SET_VARIABLES"
)

type OperationLogEntity struct {
	Id int64

	CaseInstanceId pgtype.Int8
	EntityId       int64

	EntityType string
	Operation  string
	TenantId   pgtype.Text
	Timestamp  time.Time
	UserId     pgtype.Text
	WorkerId   string
}

func (e OperationLogEntity) OperationLogEntry() engine.OperationLogEntry {
	return engine.OperationLogEntry{
		Id: e.Id,

		CaseInstanceId: e.CaseInstanceId.Int64,
		EntityId:       e.EntityId,

		EntityType: e.EntityType,
		Operation:  e.Operation,
		TenantId:   e.TenantId.String,
		Timestamp:  e.Timestamp,
		UserId:     e.UserId.String,
		WorkerId:   e.WorkerId,
	}
}

type OperationLogRepository interface {
	Insert(*OperationLogEntity) error

	Query(engine.OperationLogCriteria, engine.QueryOptions, TenantFilter) ([]engine.OperationLogEntry, error)
}

// logOperation records an operation, performed by the user of the context's authentication, if any.
func logOperation(ctx Context, entity OperationLogEntity) error {
	entity.Id = ctx.Services().NextId()
	entity.Timestamp = ctx.Time()

	if authentication, ok := engine.AuthenticationFrom(ctx.Context()); ok {
		entity.UserId = text(authentication.UserId)
	}

	return ctx.OperationLog().Insert(&entity)
}
