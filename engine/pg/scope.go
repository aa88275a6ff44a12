package pg

import (
	"context"
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/gclaussn/go-cmmn/model"
	"github.com/jackc/pgx/v5"
)

type scopeRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r scopeRepository) Insert(entity *internal.ScopeEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO scope (
	id,

	case_instance_id,
	definition_id,
	parent_id,

	activity_id,
	activity_type,
	business_key,
	created_at,
	created_by,
	ended_at,
	parent_suspended,
	previous_state,
	reactivation_count,
	state,
	tenant_id
) VALUES (
	$1,

	$2,
	$3,
	$4,

	$5,
	$6,
	$7,
	$8,
	$9,
	$10,
	$11,
	$12,
	$13,
	$14,
	$15
)
`,
		entity.Id,

		entity.CaseInstanceId,
		entity.DefinitionId,
		entity.ParentId,

		entity.ActivityId,
		entity.ActivityType.String(),
		entity.BusinessKey,
		entity.CreatedAt,
		entity.CreatedBy,
		entity.EndedAt,
		entity.ParentSuspended,
		entity.PreviousState.String(),
		entity.ReactivationCount,
		entity.State.String(),
		entity.TenantId,
	); err != nil {
		return fmt.Errorf("failed to insert scope %+v: %v", entity, err)
	}

	return nil
}

func (r scopeRepository) Select(id int64) (*internal.ScopeEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	id,

	case_instance_id,
	definition_id,
	parent_id,

	activity_id,
	activity_type,
	business_key,
	created_at,
	created_by,
	ended_at,
	parent_suspended,
	previous_state,
	reactivation_count,
	state,
	tenant_id
FROM
	scope
WHERE
	id = $1
`, id)

	entity, err := scanScope(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to select scope %d: %v", id, err)
		}
	}

	return entity, nil
}

func (r scopeRepository) SelectByCaseInstance(caseInstanceId int64) ([]*internal.ScopeEntity, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,

	case_instance_id,
	definition_id,
	parent_id,

	activity_id,
	activity_type,
	business_key,
	created_at,
	created_by,
	ended_at,
	parent_suspended,
	previous_state,
	reactivation_count,
	state,
	tenant_id
FROM
	scope
WHERE
	case_instance_id = $1
ORDER BY
	id
FOR UPDATE
`, caseInstanceId)
	if err != nil {
		return nil, fmt.Errorf("failed to select scopes of case instance %d: %v", caseInstanceId, err)
	}

	defer rows.Close()

	var entities []*internal.ScopeEntity
	for rows.Next() {
		entity, err := scanScope(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scope row: %v", err)
		}

		entities = append(entities, entity)
	}

	return entities, rows.Err()
}

func (r scopeRepository) Update(entity *internal.ScopeEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
UPDATE
	scope
SET
	ended_at = $2,
	parent_suspended = $3,
	previous_state = $4,
	reactivation_count = $5,
	state = $6
WHERE
	id = $1
`,
		entity.Id,

		entity.EndedAt,
		entity.ParentSuspended,
		entity.PreviousState.String(),
		entity.ReactivationCount,
		entity.State.String(),
	); err != nil {
		return fmt.Errorf("failed to update scope %+v: %v", entity, err)
	}

	return nil
}

func (r scopeRepository) Delete(id int64) error {
	if _, err := r.tx.Exec(r.txCtx, "DELETE FROM scope WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete scope %d: %v", id, err)
	}
	return nil
}

func (r scopeRepository) Query(c engine.ScopeCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Scope, error) {
	sql, err := renderQuery(sqlScopeQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute scope query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.Scope, 0)
	for rows.Next() {
		entity, err := scanScope(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scope row: %v", err)
		}

		results = append(results, entity.Scope())
	}

	return results, rows.Err()
}

func scanScope(row pgx.Row) (*internal.ScopeEntity, error) {
	var (
		entity             internal.ScopeEntity
		activityTypeValue  string
		previousStateValue string
		stateValue         string
	)

	if err := row.Scan(
		&entity.Id,

		&entity.CaseInstanceId,
		&entity.DefinitionId,
		&entity.ParentId,

		&entity.ActivityId,
		&activityTypeValue,
		&entity.BusinessKey,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.EndedAt,
		&entity.ParentSuspended,
		&previousStateValue,
		&entity.ReactivationCount,
		&stateValue,
		&entity.TenantId,
	); err != nil {
		return nil, err
	}

	entity.ActivityType = model.MapElementType(activityTypeValue)
	entity.PreviousState = engine.MapScopeState(previousStateValue)
	entity.State = engine.MapScopeState(stateValue)

	return &entity, nil
}
