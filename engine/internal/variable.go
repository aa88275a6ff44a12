package internal

import (
	"slices"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/jackc/pgx/v5/pgtype"
)

type VariableEntity struct {
	Id int64

	CaseInstanceId int64
	ScopeId        int64
	SourceScopeId  int64

	CreatedAt time.Time
	CreatedBy string
	Name      string
	TenantId  pgtype.Text
	TypeName  string
	UpdatedAt time.Time
	UpdatedBy string
	Value     string
}

// Variable returns the view of a variable. A value that cannot be decoded is returned as it is stored.
func (e VariableEntity) Variable() engine.Variable {
	value, err := DecodeValue(e.TypeName, e.Value)
	if err != nil {
		value = e.Value
	}

	return engine.Variable{
		Id: e.Id,

		CaseInstanceId: e.CaseInstanceId,
		ScopeId:        e.ScopeId,
		SourceScopeId:  e.SourceScopeId,

		CreatedAt: e.CreatedAt,
		CreatedBy: e.CreatedBy,
		Name:      e.Name,
		TenantId:  e.TenantId.String,
		TypeName:  e.TypeName,
		UpdatedAt: e.UpdatedAt,
		UpdatedBy: e.UpdatedBy,
		Value:     value,
	}
}

type VariableRepository interface {
	Insert(*VariableEntity) error
	// SelectByCaseInstance selects all variables of a case instance, ordered by ID.
	SelectByCaseInstance(caseInstanceId int64) ([]*VariableEntity, error)
	Update(*VariableEntity) error
	Delete(id int64) error

	Query(engine.VariableCriteria, engine.QueryOptions, TenantFilter) ([]engine.Variable, error)
}

func GetVariables(ctx Context, cmd engine.GetVariablesCmd) (map[string]any, error) {
	const title = "failed to get variables"

	if err := validateCmd(title, cmd); err != nil {
		return nil, err
	}

	r, i, err := loadScope(ctx, title, cmd.ScopeId, "")
	if err != nil {
		return nil, err
	}

	variables := r.tree.variables(i, cmd.Local)
	if len(cmd.Names) == 0 {
		return variables, nil
	}

	selected := make(map[string]any, len(cmd.Names))
	for _, name := range cmd.Names {
		if value, ok := variables[name]; ok {
			selected[name] = value
		}
	}
	return selected, nil
}

func RemoveVariables(ctx Context, cmd engine.RemoveVariablesCmd) error {
	const title = "failed to remove variables"

	if err := validateCmd(title, cmd); err != nil {
		return err
	}

	r, i, err := loadScope(ctx, title, cmd.ScopeId, cmd.WorkerId)
	if err != nil {
		return err
	}

	for _, name := range cmd.Names {
		if err := r.removeVariable(i, name, cmd.Local); err != nil {
			return err
		}
	}

	if err := r.tree.flush(); err != nil {
		return err
	}

	return logVariableOperation(ctx, r.tree.nodes[i].entity, OperationRemoveVariables, cmd.WorkerId)
}

func SetVariables(ctx Context, cmd engine.SetVariablesCmd) error {
	const title = "failed to set variables"

	if err := validateCmd(title, cmd); err != nil {
		return err
	}

	r, i, err := loadScope(ctx, title, cmd.ScopeId, cmd.WorkerId)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(cmd.Variables))
	for name := range cmd.Variables {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := r.setVariable(i, name, cmd.Variables[name], cmd.Local); err != nil {
			return err
		}
	}

	if err := r.tree.flush(); err != nil {
		return err
	}

	return logVariableOperation(ctx, r.tree.nodes[i].entity, OperationSetVariables, cmd.WorkerId)
}

func logVariableOperation(ctx Context, scope *ScopeEntity, operation string, workerId string) error {
	return logOperation(ctx, OperationLogEntity{
		CaseInstanceId: pgtypeInt8(scope.CaseInstanceId),
		EntityId:       scope.Id,
		EntityType:     EntityScope,
		Operation:      operation,
		TenantId:       scope.TenantId,
		WorkerId:       workerId,
	})
}
