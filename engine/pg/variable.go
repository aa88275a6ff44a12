package pg

import (
	"context"
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type variableRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r variableRepository) Insert(entity *internal.VariableEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO variable (
	id,

	case_instance_id,
	scope_id,
	source_scope_id,

	created_at,
	created_by,
	name,
	tenant_id,
	type_name,
	updated_at,
	updated_by,
	value
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
	$12
)
`,
		entity.Id,

		entity.CaseInstanceId,
		entity.ScopeId,
		entity.SourceScopeId,

		entity.CreatedAt,
		entity.CreatedBy,
		entity.Name,
		entity.TenantId,
		entity.TypeName,
		entity.UpdatedAt,
		entity.UpdatedBy,
		entity.Value,
	); err != nil {
		return fmt.Errorf("failed to insert variable %+v: %v", entity, err)
	}

	return nil
}

func (r variableRepository) SelectByCaseInstance(caseInstanceId int64) ([]*internal.VariableEntity, error) {
	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,

	case_instance_id,
	scope_id,
	source_scope_id,

	created_at,
	created_by,
	name,
	tenant_id,
	type_name,
	updated_at,
	updated_by,
	value
FROM
	variable
WHERE
	case_instance_id = $1
ORDER BY
	id
`, caseInstanceId)
	if err != nil {
		return nil, fmt.Errorf("failed to select variables of case instance %d: %v", caseInstanceId, err)
	}

	defer rows.Close()

	var entities []*internal.VariableEntity
	for rows.Next() {
		entity, err := scanVariable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variable row: %v", err)
		}

		entities = append(entities, entity)
	}

	return entities, rows.Err()
}

func (r variableRepository) Update(entity *internal.VariableEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
UPDATE
	variable
SET
	source_scope_id = $2,
	type_name = $3,
	updated_at = $4,
	updated_by = $5,
	value = $6
WHERE
	id = $1
`,
		entity.Id,

		entity.SourceScopeId,
		entity.TypeName,
		entity.UpdatedAt,
		entity.UpdatedBy,
		entity.Value,
	); err != nil {
		return fmt.Errorf("failed to update variable %+v: %v", entity, err)
	}

	return nil
}

func (r variableRepository) Delete(id int64) error {
	if _, err := r.tx.Exec(r.txCtx, "DELETE FROM variable WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete variable %d: %v", id, err)
	}
	return nil
}

func (r variableRepository) Query(c engine.VariableCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Variable, error) {
	sql, err := renderQuery(sqlVariableQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute variable query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.Variable, 0)
	for rows.Next() {
		entity, err := scanVariable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variable row: %v", err)
		}

		results = append(results, entity.Variable())
	}

	return results, rows.Err()
}

func scanVariable(row pgx.Row) (*internal.VariableEntity, error) {
	var entity internal.VariableEntity
	if err := row.Scan(
		&entity.Id,

		&entity.CaseInstanceId,
		&entity.ScopeId,
		&entity.SourceScopeId,

		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.Name,
		&entity.TenantId,
		&entity.TypeName,
		&entity.UpdatedAt,
		&entity.UpdatedBy,
		&entity.Value,
	); err != nil {
		return nil, err
	}
	return &entity, nil
}
