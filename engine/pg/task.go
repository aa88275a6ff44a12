package pg

import (
	"context"
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type taskRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r taskRepository) Insert(entity *internal.TaskEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO task (
	id,

	case_instance_id,
	definition_id,
	scope_id,

	activity_id,
	created_at,
	name,
	tenant_id
) VALUES (
	$1,

	$2,
	$3,
	$4,

	$5,
	$6,
	$7,
	$8
)
`,
		entity.Id,

		entity.CaseInstanceId,
		entity.DefinitionId,
		entity.ScopeId,

		entity.ActivityId,
		entity.CreatedAt,
		entity.Name,
		entity.TenantId,
	); err != nil {
		return fmt.Errorf("failed to insert task %+v: %v", entity, err)
	}

	return nil
}

func (r taskRepository) SelectByCaseInstance(caseInstanceId int64) ([]*internal.TaskEntity, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,

	case_instance_id,
	definition_id,
	scope_id,

	activity_id,
	created_at,
	name,
	tenant_id
FROM
	task
WHERE
	case_instance_id = $1
ORDER BY
	id
`, caseInstanceId)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks of case instance %d: %v", caseInstanceId, err)
	}

	defer rows.Close()

	var entities []*internal.TaskEntity
	for rows.Next() {
		entity, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %v", err)
		}

		entities = append(entities, entity)
	}

	return entities, rows.Err()
}

func (r taskRepository) Delete(id int64) error {
	if _, err := r.tx.Exec(r.txCtx, "DELETE FROM task WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete task %d: %v", id, err)
	}
	return nil
}

func (r taskRepository) Query(c engine.TaskCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Task, error) {
	sql, err := renderQuery(sqlTaskQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute task query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.Task, 0)
	for rows.Next() {
		entity, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %v", err)
		}

		results = append(results, entity.Task())
	}

	return results, rows.Err()
}

func scanTask(row pgx.Row) (*internal.TaskEntity, error) {
	var entity internal.TaskEntity
	if err := row.Scan(
		&entity.Id,

		&entity.CaseInstanceId,
		&entity.DefinitionId,
		&entity.ScopeId,

		&entity.ActivityId,
		&entity.CreatedAt,
		&entity.Name,
		&entity.TenantId,
	); err != nil {
		return nil, err
	}
	return &entity, nil
}
