package internal

import (
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/jackc/pgx/v5"
)

// loadScope loads the tree of the case instance, a scope belongs to, after checking the tenant access.
func loadScope(ctx Context, title string, scopeId int64, workerId string) (*caseRuntime, int, error) {
	scope, err := ctx.Scopes().Select(scopeId)
	if err == pgx.ErrNoRows {
		return nil, -1, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  title,
			Detail: fmt.Sprintf("scope %d could not be found", scopeId),
		}
	}
	if err != nil {
		return nil, -1, err
	}

	if err := newCommandTenantFilter(ctx).checkAccess(title, scope.TenantId); err != nil {
		return nil, -1, err
	}

	tree, err := loadCaseTree(ctx, scope.CaseInstanceId, workerId)
	if err != nil {
		return nil, -1, err
	}

	i, ok := tree.index(scopeId)
	if !ok {
		return nil, -1, fmt.Errorf("scope %d is not part of case instance %d", scopeId, scope.CaseInstanceId)
	}

	return newCaseRuntime(tree), i, nil
}

func CreateCaseInstance(ctx Context, cmd engine.CreateCaseInstanceCmd) (engine.Scope, error) {
	const title = "failed to create case instance"

	if err := validateCmd(title, cmd); err != nil {
		return engine.Scope{}, err
	}

	filter := newCommandTenantFilter(ctx)

	var definitionId int64
	if cmd.DefinitionId != 0 {
		entity, err := ctx.Definitions().Select(cmd.DefinitionId)
		if err == pgx.ErrNoRows {
			return engine.Scope{}, engine.Error{
				Type:   engine.ErrorNotFound,
				Title:  title,
				Detail: fmt.Sprintf("definition %d could not be found", cmd.DefinitionId),
			}
		}
		if err != nil {
			return engine.Scope{}, err
		}
		if err := filter.checkAccess(title, entity.TenantId); err != nil {
			return engine.Scope{}, err
		}
		definitionId = entity.Id
	} else {
		id, err := selectLatestDefinition(ctx, title, cmd, filter)
		if err != nil {
			return engine.Scope{}, err
		}
		definitionId = id
	}

	definition, err := ctx.Services().DefinitionCache.GetOrCache(ctx, definitionId)
	if err != nil {
		return engine.Scope{}, err
	}

	r := newCaseRuntime(newCaseTree(ctx, definition, cmd.WorkerId))
	if err := r.createCaseInstance(cmd.BusinessKey, cmd.Variables); err != nil {
		return engine.Scope{}, err
	}

	if err := r.tree.flush(); err != nil {
		return engine.Scope{}, err
	}

	root := r.tree.root().entity
	if err := logOperation(ctx, OperationLogEntity{
		CaseInstanceId: pgtypeInt8(root.CaseInstanceId),
		EntityId:       root.Id,
		EntityType:     EntityCaseInstance,
		Operation:      OperationCreateCaseInstance,
		TenantId:       root.TenantId,
		WorkerId:       cmd.WorkerId,
	}); err != nil {
		return engine.Scope{}, err
	}

	return root.Scope(), nil
}

// selectLatestDefinition selects the latest visible version of a definition key.
// A key, which is deployed for more than one visible tenant, must be qualified by a tenant ID or WithoutTenantId.
func selectLatestDefinition(ctx Context, title string, cmd engine.CreateCaseInstanceCmd, filter TenantFilter) (int64, error) {
	criteria := engine.DefinitionCriteria{
		Key:           cmd.DefinitionKey,
		LatestVersion: true,
	}
	if cmd.TenantId != "" {
		criteria.TenantIds = []string{cmd.TenantId}
	}
	criteria.WithoutTenantId = cmd.WithoutTenantId

	filter.Criteria = criteria.TenantCriteria

	definitions, err := ctx.Definitions().Query(criteria, engine.QueryOptions{Limit: 2}, filter)
	if err != nil {
		return 0, err
	}

	switch len(definitions) {
	case 0:
		return 0, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  title,
			Detail: fmt.Sprintf("definition %s could not be found", cmd.DefinitionKey),
		}
	case 1:
		return definitions[0].Id, nil
	default:
		return 0, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  title,
			Detail: fmt.Sprintf("definition %s is deployed for more than one tenant", cmd.DefinitionKey),
		}
	}
}

func CreateChildScope(ctx Context, cmd engine.CreateChildScopeCmd) (engine.Scope, error) {
	const title = "failed to create child scope"

	if err := validateCmd(title, cmd); err != nil {
		return engine.Scope{}, err
	}

	r, parent, err := loadScope(ctx, title, cmd.ParentId, cmd.WorkerId)
	if err != nil {
		return engine.Scope{}, err
	}

	parentNode := r.tree.nodes[parent]
	if parentNode.entity.State.IsTerminal() {
		return engine.Scope{}, engine.Error{
			Type:   engine.ErrorIllegalState,
			Title:  title,
			Detail: fmt.Sprintf("parent scope %d/%s is %s", cmd.ParentId, parentNode.entity.ActivityId, parentNode.entity.State),
		}
	}

	element := r.tree.definition.Case.ElementById(cmd.ActivityId)
	if element == nil {
		return engine.Scope{}, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  title,
			Detail: fmt.Sprintf("definition %d has no plan item %s", parentNode.entity.DefinitionId, cmd.ActivityId),
		}
	}
	if element.Parent != parentNode.element {
		return engine.Scope{}, engine.Error{
			Type:   engine.ErrorInvalidArgument,
			Title:  title,
			Detail: fmt.Sprintf("plan item %s is not a child of %s", cmd.ActivityId, parentNode.entity.ActivityId),
		}
	}
	if cmd.TenantId != "" && cmd.TenantId != parentNode.entity.TenantId.String {
		return engine.Scope{}, engine.Error{
			Type:   engine.ErrorInvalidArgument,
			Title:  title,
			Detail: fmt.Sprintf("tenant %s does not match the tenant of case instance %d", cmd.TenantId, parentNode.entity.CaseInstanceId),
		}
	}

	i, err := r.createChild(parent, element)
	if err != nil {
		return engine.Scope{}, err
	}

	if err := r.tree.flush(); err != nil {
		return engine.Scope{}, err
	}

	scope := r.tree.nodes[i].entity
	if err := logOperation(ctx, OperationLogEntity{
		CaseInstanceId: pgtypeInt8(scope.CaseInstanceId),
		EntityId:       scope.Id,
		EntityType:     EntityScope,
		Operation:      OperationCreateChildScope,
		TenantId:       scope.TenantId,
		WorkerId:       cmd.WorkerId,
	}); err != nil {
		return engine.Scope{}, err
	}

	return scope.Scope(), nil
}

func TransitionScope(ctx Context, cmd engine.TransitionScopeCmd) (engine.Scope, error) {
	const title = "failed to transition scope"

	if err := validateCmd(title, cmd); err != nil {
		return engine.Scope{}, err
	}

	r, i, err := loadScope(ctx, title, cmd.ScopeId, cmd.WorkerId)
	if err != nil {
		return engine.Scope{}, err
	}

	if err := r.transition(i, cmd.Transition); err != nil {
		return engine.Scope{}, err
	}

	if err := r.tree.flush(); err != nil {
		return engine.Scope{}, err
	}

	scope := r.tree.nodes[i].entity
	if err := logOperation(ctx, OperationLogEntity{
		CaseInstanceId: pgtypeInt8(scope.CaseInstanceId),
		EntityId:       scope.Id,
		EntityType:     EntityScope,
		Operation:      cmd.Transition.String(),
		TenantId:       scope.TenantId,
		WorkerId:       cmd.WorkerId,
	}); err != nil {
		return engine.Scope{}, err
	}

	return scope.Scope(), nil
}
