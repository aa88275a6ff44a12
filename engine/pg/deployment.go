package pg

import (
	"context"
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5"
)

type deploymentRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r deploymentRepository) Insert(entity *internal.DeploymentEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO deployment (
	id,

	created_at,
	created_by,
	name,
	tenant_id
) VALUES (
	$1,

	$2,
	$3,
	$4,
	$5
)
`,
		entity.Id,

		entity.CreatedAt,
		entity.CreatedBy,
		entity.Name,
		entity.TenantId,
	); err != nil {
		return fmt.Errorf("failed to insert deployment %+v: %v", entity, err)
	}

	return nil
}

func (r deploymentRepository) Select(id int64) (*internal.DeploymentEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	created_at,
	created_by,
	name,
	tenant_id
FROM
	deployment
WHERE
	id = $1
`, id)

	var entity internal.DeploymentEntity
	if err := row.Scan(
		&entity.CreatedAt,
		&entity.CreatedBy,
		&entity.Name,
		&entity.TenantId,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to select deployment %d: %v", id, err)
		}
	}

	entity.Id = id

	return &entity, nil
}

func (r deploymentRepository) Query(c engine.DeploymentCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.Deployment, error) {
	sql, err := renderQuery(sqlDeploymentQuery, c, o, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(r.txCtx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to execute deployment query: %v", err)
	}

	defer rows.Close()

	results := make([]engine.Deployment, 0)
	for rows.Next() {
		var entity internal.DeploymentEntity

		if err := rows.Scan(
			&entity.Id,

			&entity.CreatedAt,
			&entity.CreatedBy,
			&entity.Name,
			&entity.TenantId,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deployment row: %v", err)
		}

		results = append(results, entity.Deployment())
	}

	return results, rows.Err()
}

type resourceRepository struct {
	tx    pgx.Tx
	txCtx context.Context
}

func (r resourceRepository) Insert(entity *internal.ResourceEntity) error {
	if _, err := r.tx.Exec(r.txCtx, `
INSERT INTO resource (
	deployment_id,
	name,

	content
) VALUES (
	$1,
	$2,

	$3
)
`,
		entity.DeploymentId,
		entity.Name,

		entity.Content,
	); err != nil {
		return fmt.Errorf("failed to insert resource %d/%s: %v", entity.DeploymentId, entity.Name, err)
	}

	return nil
}

func (r resourceRepository) Select(deploymentId int64, name string) (*internal.ResourceEntity, error) {
	row := r.tx.QueryRow(r.txCtx, `
SELECT
	content
FROM
	resource
WHERE
	deployment_id = $1 AND
	name = $2
`, deploymentId, name)

	entity := internal.ResourceEntity{
		DeploymentId: deploymentId,
		Name:         name,
	}
	if err := row.Scan(&entity.Content); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		} else {
			return nil, fmt.Errorf("failed to select resource %d/%s: %v", deploymentId, name, err)
		}
	}

	return &entity, nil
}
