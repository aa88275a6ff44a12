package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type jobRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r jobRepository) Insert(entity *internal.JobEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO job (
	id,

	batch_id,
	case_instance_id,
	definition_id,

	completed_at,
	created_at,
	created_by,
	due_at,
	error,
	retries_left,
	tenant_id,
	type
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

		entity.BatchId,
		entity.CaseInstanceId,
		entity.DefinitionId,

		entity.CompletedAt,
		entity.CreatedAt,
		entity.CreatedBy,
		entity.DueAt,
		entity.Error,
		entity.RetriesLeft,
		entity.TenantId,
		entity.Type.String(),
	); err != nil {
		return fmt.Errorf("failed to insert job %+v: %v", entity, err)
	}

	return nil
}

// Select selects and locks a job.
func (r jobRepository) Select(id int64) (*internal.JobEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	batch_id,
	case_instance_id,
	definition_id,

	completed_at,
	created_at,
	created_by,
	due_at,
	error,
	retries_left,
	tenant_id,
	type
FROM
	job
WHERE
	id = $1
FOR UPDATE
`, id)

	var (
		entity    internal.JobEntity
		typeValue string
	)
	if err := row.Scan(
		&entity.BatchId,
		&entity.CaseInstanceId,
		&entity.DefinitionId,

		&entity.CompletedAt,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.DueAt,
		&entity.Error,
		&entity.RetriesLeft,
		&entity.TenantId,
		&typeValue,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to select job %d: %v", id, err)
		}
	}

	entity.Id = id
	entity.Type = engine.MapBatchType(typeValue)

	return &entity, nil
}

func (r jobRepository) SelectDue(batchId int64, dueAt time.Time, limit int) ([]*internal.JobEntity, error) {
	var limitValue *int
	if limit > 0 {
		limitValue = &limit
	}

	rows, err := r.tx.Query(r.txCtx, `
SELECT
	id,

	batch_id,
	case_instance_id,
	definition_id,

	created_at,
	created_by,
	due_at,
	retries_left,
	tenant_id,
	type
FROM
	job
WHERE
	completed_at IS NULL AND
	due_at <= $1 AND
	($2::BIGINT = 0 OR batch_id = $2::BIGINT)
ORDER BY
	due_at,
	id
LIMIT $3::BIGINT
`, dueAt, batchId, limitValue)
	if err != nil {
		return nil, fmt.Errorf("failed to select due jobs: %v", err)
	}

	defer rows.Close()

	var entities []*internal.JobEntity
	for rows.Next() {
		var (
			entity    internal.JobEntity
			typeValue string
		)

		if err := rows.Scan(
			&entity.Id,

			&entity.BatchId,
			&entity.CaseInstanceId,
			&entity.DefinitionId,

			&entity.CreatedAt,
			&entity.CreatedBy,
			&entity.DueAt,
			&entity.RetriesLeft,
			&entity.TenantId,
			&typeValue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan due job row: %v", err)
		}

		entity.Type = engine.MapBatchType(typeValue)

		entities = append(entities, &entity)
	}

	return entities, rows.Err()
}

func (r jobRepository) CountOpen(batchId int64) (int, error) {
	row := r.tx.QueryRow(r.txCtx, "SELECT COUNT(*) FROM job WHERE batch_id = $1 AND completed_at IS NULL", batchId)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count open jobs of batch %d: %v", batchId, err)
	}

	return count, nil
}

func (r jobRepository) Update(entity *internal.JobEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
UPDATE
	job
SET
	completed_at = $2,
	error = $3
WHERE
	id = $1
`,
		entity.Id,

		entity.CompletedAt,
		entity.Error,
	); err != nil {
		return fmt.Errorf("failed to update job %+v: %v", entity, err)
	}

	return nil
}

func (r jobRepository) Query(c engine.JobCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Job, error) {
	sql, err := renderQuery(sqlJobQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute job query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.Job, 0)
	for rows.Next() {
		var (
			entity    internal.JobEntity
			typeValue string
		)

		if err := rows.Scan(
			&entity.Id,

			&entity.BatchId,
			&entity.CaseInstanceId,
			&entity.DefinitionId,

			&entity.CompletedAt,
			&entity.CreatedAt,
			&entity.CreatedBy,
			&entity.DueAt,
			&entity.Error,
			&entity.RetriesLeft,
			&entity.TenantId,
			&typeValue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %v", err)
		}

		entity.Type = engine.MapBatchType(typeValue)

		results = append(results, entity.Job())
	}

	return results, rows.Err()
}
