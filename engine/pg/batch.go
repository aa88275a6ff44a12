package pg

import (
	"context"
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type batchRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r batchRepository) Insert(entity *internal.BatchEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO batch (
	id,

	completed_at,
	created_at,
	created_by,
	tenant_id,
	total_jobs,
	type,
	variables
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

		entity.CompletedAt,
		entity.CreatedAt,
		entity.CreatedBy,
		entity.TenantId,
		entity.TotalJobs,
		entity.Type.String(),
		entity.Variables,
	); err != nil {
		return fmt.Errorf("failed to insert batch %+v: %v", entity, err)
	}

	return nil
}

func (r batchRepository) Select(id int64) (*internal.BatchEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	completed_at,
	created_at,
	created_by,
	tenant_id,
	total_jobs,
	type,
	variables
FROM
	batch
WHERE
	id = $1
FOR UPDATE
`, id)

	var (
		entity    internal.BatchEntity
		typeValue string
	)
	if err := row.Scan(
		&entity.CompletedAt,
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.TenantId,
		&entity.TotalJobs,
		&typeValue,
		&entity.Variables,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to select batch %d: %v", id, err)
		}
	}

	entity.Id = id
	entity.Type = engine.MapBatchType(typeValue)

	return &entity, nil
}

func (r batchRepository) Update(entity *internal.BatchEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
UPDATE
	batch
SET
	completed_at = $2
WHERE
	id = $1
`,
		entity.Id,

		entity.CompletedAt,
	); err != nil {
		return fmt.Errorf("failed to update batch %+v: %v", entity, err)
	}

	return nil
}

func (r batchRepository) Query(c engine.BatchCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Batch, error) {
	sql, err := renderQuery(sqlBatchQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute batch query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.Batch, 0)
	for rows.Next() {
		var (
			entity    internal.BatchEntity
			typeValue string
		)

		if err := rows.Scan(
			&entity.Id,

			&entity.CompletedAt,
			&entity.CreatedAt,
			&entity.CreatedBy,
			&entity.TenantId,
			&entity.TotalJobs,
			&typeValue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %v", err)
		}

		entity.Type = engine.MapBatchType(typeValue)

		results = append(results, entity.Batch())
	}

	return results, rows.Err()
}
