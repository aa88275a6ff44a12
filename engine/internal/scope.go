package internal

import (
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
	"github.com/jackc/pgx/v5/pgtype"
)

// A ScopeEntity is a case instance (the root scope) or a plan item instance.
type ScopeEntity struct {
	Id int64

	CaseInstanceId int64
	DefinitionId   int64
	ParentId       pgtype.Int8

	ActivityId        string
	ActivityType      model.ElementType
	BusinessKey       pgtype.Text
	CreatedAt         time.Time
	CreatedBy         string
	EndedAt           pgtype.Timestamp
	ParentSuspended   bool              // Determines if the scope was suspended, because an ancestor was suspended.
	PreviousState     engine.ScopeState // State before the scope was suspended.
	ReactivationCount int
	State             engine.ScopeState
	TenantId          pgtype.Text
}

func (e ScopeEntity) Scope() engine.Scope {
	return engine.Scope{
		Id: e.Id,

		CaseInstanceId: e.CaseInstanceId,
		DefinitionId:   e.DefinitionId,
		ParentId:       e.ParentId.Int64,

		ActivityId:        e.ActivityId,
		ActivityType:      e.ActivityType,
		BusinessKey:       e.BusinessKey.String,
		CreatedAt:         e.CreatedAt,
		CreatedBy:         e.CreatedBy,
		EndedAt:           timeOrNil(e.EndedAt),
		ReactivationCount: e.ReactivationCount,
		State:             e.State,
		TenantId:          e.TenantId.String,
	}
}

type ScopeRepository interface {
	Insert(*ScopeEntity) error
	Select(id int64) (*ScopeEntity, error)
	// SelectByCaseInstance selects all scopes of a case instance, ordered by ID.
	// A database implementation locks the selected rows until the command ends.
	SelectByCaseInstance(caseInstanceId int64) ([]*ScopeEntity, error)
	Update(*ScopeEntity) error
	Delete(id int64) error

	Query(engine.ScopeCriteria, engine.QueryOptions, TenantFilter) ([]engine.Scope, error)
}
