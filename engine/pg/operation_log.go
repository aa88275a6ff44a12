package pg

import (
	"context"
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type operationLogRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r operationLogRepository) Insert(entity *internal.OperationLogEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO operation_log (
	id,

	case_instance_id,
	entity_id,

	entity_type,
	logged_at,
	operation,
	tenant_id,
	user_id,
	worker_id
) VALUES (
	$1,

	$2,
	$3,

	$4,
	$5,
	$6,
	$7,
	$8,
	$9
)
`,
		entity.Id,

		entity.CaseInstanceId,
		entity.EntityId,

		entity.EntityType,
		entity.Timestamp,
		entity.Operation,
		entity.TenantId,
		entity.UserId,
		entity.WorkerId,
	); err != nil {
		return fmt.Errorf("failed to insert operation log entry %+v: %v", entity, err)
	}

	return nil
}

func (r operationLogRepository) Query(c engine.OperationLogCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.OperationLogEntry, error) {
	sql, err := renderQuery(sqlOperationLogQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute operation log query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.OperationLogEntry, 0)
	for rows.Next() {
		var entity internal.OperationLogEntity

		if err := rows.Scan(
			&entity.Id,

			&entity.CaseInstanceId,
			&entity.EntityId,

			&entity.EntityType,
			&entity.Timestamp,
			&entity.Operation,
			&entity.TenantId,
			&entity.UserId,
			&entity.WorkerId,
		); err != nil {
			return nil, fmt.Errorf("failed to scan operation log row: %v", err)
		}

		results = append(results, entity.OperationLogEntry())
	}

	return results, rows.Err()
}
