package internal

import (
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/jackc/pgx/v5/pgtype"
)

// A TaskEntity represents the work item of an active human task.
type TaskEntity struct {
	Id int64

	CaseInstanceId int64
	DefinitionId   int64
	ScopeId        int64

	ActivityId string
	CreatedAt  time.Time
	Name       pgtype.Text
	TenantId   pgtype.Text
}

func (e TaskEntity) Task() engine.Task {
	return engine.Task{
		Id: e.Id,

		CaseInstanceId: e.CaseInstanceId,
		DefinitionId:   e.DefinitionId,
		ScopeId:        e.ScopeId,

		ActivityId: e.ActivityId,
		CreatedAt:  e.CreatedAt,
		Name:       e.Name.String,
		TenantId:   e.TenantId.String,
	}
}

type TaskRepository interface {
	Insert(*TaskEntity) error
	SelectByCaseInstance(caseInstanceId int64) ([]*TaskEntity, error)
	Delete(id int64) error

	Query(engine.TaskCriteria, engine.QueryOptions, TenantFilter) ([]engine.Task, error)
}
