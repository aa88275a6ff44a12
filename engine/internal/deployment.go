package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
	"github.com/jackc/pgx/v5/pgtype"
)

type DeploymentEntity struct {
	Id int64

	CreatedAt time.Time
	CreatedBy string
	Name      string
	TenantId  pgtype.Text
}

func (e DeploymentEntity) Deployment() engine.Deployment {
	return engine.Deployment{
		Id: e.Id,

		CreatedAt: e.CreatedAt,
		CreatedBy: e.CreatedBy,
		Name:      e.Name,
		TenantId:  e.TenantId.String,
	}
}

type DeploymentRepository interface {
	Insert(*DeploymentEntity) error
	Select(id int64) (*DeploymentEntity, error)

	Query(engine.DeploymentCriteria, engine.QueryOptions, TenantFilter) ([]engine.Deployment, error)
}

// A ResourceEntity is a case model or a script, deployed as part of a deployment.
type ResourceEntity struct {
	DeploymentId int64
	Name         string

	Content string
}

type ResourceRepository interface {
	Insert(*ResourceEntity) error
	Select(deploymentId int64, name string) (*ResourceEntity, error)
}

// IsCaseModel determines if a resource is a YAML case model, based on its name.
func IsCaseModel(resourceName string) bool {
	return strings.HasSuffix(resourceName, ".yaml") || strings.HasSuffix(resourceName, ".yml")
}

func CreateDeployment(ctx Context, cmd engine.CreateDeploymentCmd) (engine.Deployment, error) {
	const title = "failed to create deployment"

	if err := validateCmd(title, cmd); err != nil {
		return engine.Deployment{}, err
	}

	tenantId := text(cmd.TenantId)
	if err := newCommandTenantFilter(ctx).checkAccess(title, tenantId); err != nil {
		return engine.Deployment{}, err
	}

	type deployedCase struct {
		resourceName string
		c            *model.Case
	}

	var (
		causes []engine.ErrorCause
		cases  []deployedCase

		caseIds       = make(map[string]bool)
		resourceNames = make(map[string]bool, len(cmd.Resources))
	)

	for _, resource := range cmd.Resources {
		resourceNames[resource.Name] = true
	}

	for i, resource := range cmd.Resources {
		pointer := fmt.Sprintf("/resources/%d", i)

		if !IsCaseModel(resource.Name) {
			continue
		}

		caseModel, err := model.New(strings.NewReader(resource.Content))
		if err != nil {
			var modelErrs model.Errors
			if errors.As(err, &modelErrs) {
				for _, modelErr := range modelErrs {
					causes = append(causes, engine.ErrorCause{
						Pointer: pointer + modelErr.Pointer,
						Type:    modelErr.Type,
						Detail:  modelErr.Detail,
					})
				}
			} else {
				causes = append(causes, engine.ErrorCause{
					Pointer: pointer,
					Type:    "yaml",
					Detail:  err.Error(),
				})
			}
			continue
		}

		for _, c := range caseModel.Cases {
			if caseIds[c.Id] {
				causes = append(causes, engine.ErrorCause{
					Pointer: pointer + "/" + c.Id,
					Type:    "unique",
					Detail:  fmt.Sprintf("case %s is defined by more than one resource", c.Id),
				})
				continue
			}
			caseIds[c.Id] = true

			for _, scriptName := range c.Scripts() {
				if !resourceNames[scriptName] {
					causes = append(causes, engine.ErrorCause{
						Pointer: pointer + "/" + c.Id,
						Type:    "resource",
						Detail:  fmt.Sprintf("script resource %s is not part of the deployment", scriptName),
					})
				}
			}

			cases = append(cases, deployedCase{resourceName: resource.Name, c: c})
		}
	}

	if len(causes) != 0 {
		return engine.Deployment{}, engine.Error{
			Type:   engine.ErrorValidation,
			Title:  title,
			Detail: "invalid resources",
			Causes: causes,
		}
	}

	deployment := DeploymentEntity{
		Id: ctx.Services().NextId(),

		CreatedAt: ctx.Time(),
		CreatedBy: cmd.WorkerId,
		Name:      cmd.Name,
		TenantId:  tenantId,
	}

	if err := ctx.Deployments().Insert(&deployment); err != nil {
		return engine.Deployment{}, err
	}

	for _, resource := range cmd.Resources {
		entity := ResourceEntity{
			DeploymentId: deployment.Id,
			Name:         resource.Name,

			Content: resource.Content,
		}

		if err := ctx.Resources().Insert(&entity); err != nil {
			return engine.Deployment{}, err
		}
	}

	definitions := make([]engine.Definition, len(cases))
	for i, deployed := range cases {
		latestVersion, err := ctx.Definitions().SelectLatestVersion(deployed.c.Id, tenantId)
		if err != nil {
			return engine.Deployment{}, err
		}

		definition := DefinitionEntity{
			Id: ctx.Services().NextId(),

			DeploymentId: deployment.Id,

			CreatedAt:    ctx.Time(),
			Key:          deployed.c.Id,
			Name:         text(deployed.c.Name),
			ResourceName: deployed.resourceName,
			TenantId:     tenantId,
			Version:      latestVersion + 1,
		}

		if err := ctx.Definitions().Insert(&definition); err != nil {
			return engine.Deployment{}, err
		}

		definitions[i] = definition.Definition()
	}

	if err := logOperation(ctx, OperationLogEntity{
		EntityId:   deployment.Id,
		EntityType: EntityDeployment,
		Operation:  OperationCreateDeployment,
		TenantId:   tenantId,
		WorkerId:   cmd.WorkerId,
	}); err != nil {
		return engine.Deployment{}, err
	}

	result := deployment.Deployment()
	result.Definitions = definitions
	return result, nil
}
