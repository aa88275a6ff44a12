package pg

import (
	"context"
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type definitionRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r definitionRepository) Insert(entity *internal.DefinitionEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO definition (
	id,

	deployment_id,

	created_at,
	key,
	name,
	resource_name,
	tenant_id,
	version
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

		entity.DeploymentId,

		entity.CreatedAt,
		entity.Key,
		entity.Name,
		entity.ResourceName,
		entity.TenantId,
		entity.Version,
	); err != nil {
		return fmt.Errorf("failed to insert definition %+v: %v", entity, err)
	}

	return nil
}

func (r definitionRepository) Select(id int64) (*internal.DefinitionEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	deployment_id,

	created_at,
	key,
	name,
	resource_name,
	tenant_id,
	version
FROM
	definition
WHERE
	id = $1
`, id)

	var entity internal.DefinitionEntity
	if err := row.Scan(
		&entity.DeploymentId,

		&entity.CreatedAt,
		&entity.Key,
		&entity.Name,
		&entity.ResourceName,
		&entity.TenantId,
		&entity.Version,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to select definition %d: %v", id, err)
		}
	}

	entity.Id = id

	return &entity, nil
}

func (r definitionRepository) SelectLatestVersion(key string, tenantId pgtype.Text) (int, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	COALESCE(MAX(version), 0)
FROM
	definition
WHERE
	key = $1 AND
	tenant_id IS NOT DISTINCT FROM $2
`, key, tenantId)

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to select latest version of definition %s: %v", key, err)
	}

	return version, nil
}

func (r definitionRepository) Query(c engine.DefinitionCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Definition, error) {
	sql, err := renderQuery(sqlDefinitionQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute definition query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.Definition, 0)
	for rows.Next() {
		var entity internal.DefinitionEntity

		if err := rows.Scan(
			&entity.Id,

			&entity.DeploymentId,

			&entity.CreatedAt,
			&entity.Key,
			&entity.Name,
			&entity.ResourceName,
			&entity.TenantId,
			&entity.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan definition row: %v", err)
		}

		results = append(results, entity.Definition())
	}

	return results, rows.Err()
}

func (r definitionRepository) QueryStatistics(c engine.DefinitionStatisticsCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.DefinitionStatistics, error) {
	sql, err := renderQuery(sqlDefinitionStatisticsQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute definition statistics query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.DefinitionStatistics, 0)
	for rows.Next() {
		var (
			statistics engine.DefinitionStatistics
			tenantId   pgtype.Text
		)

		if err := rows.Scan(
			&statistics.DefinitionId,

			&statistics.FailedJobs,
			&statistics.Instances,
			&statistics.Key,
			&tenantId,
			&statistics.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan definition statistics row: %v", err)
		}

		statistics.TenantId = tenantId.String

		results = append(results, statistics)
	}

	return results, rows.Err()
}
