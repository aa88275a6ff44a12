package engine

import "time"

// CreateBatchCmd is used to create a batch of jobs, one per case instance.
type CreateBatchCmd struct {
	// Type of the batch.
	Type BatchType `json:"type" validate:"required"`
	// Case instances, the batch's jobs are executed for.
	CaseInstanceIds []int64 `json:"caseInstanceIds" validate:"required,min=1,max=1000,unique,dive,gt=0"`
	// Variables to set on each case instance.
	// Applicable when type is `SET_VARIABLES`.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`
	// Optional CRON expression, used to determine the due date of the jobs.
	// If empty, the jobs are due immediately.
	Schedule string `json:"schedule,omitempty" validate:"cron"`

	// ID of the worker that created the batch.
	WorkerId string `json:"workerId" validate:"required"`
}

// CreateCaseInstanceCmd is used to create an instance of a case definition.
//
// The definition is identified by its ID or by its key. When a key is used, the latest version is chosen.
type CreateCaseInstanceCmd struct {
	// ID of the definition.
	DefinitionId int64 `json:"definitionId,omitempty" validate:"required_without=DefinitionKey"`
	// Key of the definition - the ID of the case within the case model.
	DefinitionKey string `json:"definitionKey,omitempty" validate:"required_without=DefinitionId"`
	// Tenant of the definition, when identified by key.
	TenantId string `json:"tenantId,omitempty" validate:"excluded_with=WithoutTenantId"`
	// Restricts the definition, identified by key, to definitions without tenant.
	WithoutTenantId bool `json:"withoutTenantId,omitempty"`

	// Optional business key of the case instance.
	BusinessKey string `json:"businessKey,omitempty" validate:"max=100"`
	// Variables to set on the case instance, before its plan items are created.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100,dive,keys,variable_name,endkeys"`

	// ID of the worker that created the case instance.
	WorkerId string `json:"workerId" validate:"required"`
}

// CreateChildScopeCmd is used to create a scope for a plan item within a parent scope.
type CreateChildScopeCmd struct {
	// ID of the parent scope.
	ParentId int64 `json:"parentId" validate:"required"`
	// ID of the plan item, which must be a child of the parent's plan item.
	ActivityId string `json:"activityId" validate:"required"`
	// Optional tenant ID, which must match the tenant of the case instance.
	TenantId string `json:"tenantId,omitempty"`

	// ID of the worker that created the scope.
	WorkerId string `json:"workerId" validate:"required"`
}

// CreateDeploymentCmd is used to deploy case models and script resources.
type CreateDeploymentCmd struct {
	// Name of the deployment.
	Name string `json:"name" validate:"required,max=100"`
	// Optional tenant of the deployment and its definitions.
	TenantId string `json:"tenantId,omitempty" validate:"omitempty,tenant_id"`
	// Resources to deploy. Resources, whose names end with `.yaml` or `.yml`, are parsed as case models.
	Resources []Resource `json:"resources" validate:"required,min=1,max=100,dive"`

	// ID of the worker that created the deployment.
	WorkerId string `json:"workerId" validate:"required"`
}

// ExecuteJobCmd is used to execute a specific job.
type ExecuteJobCmd struct {
	// Job ID.
	Id int64 `json:"id" validate:"required"`

	// ID of the worker that executes the job.
	WorkerId string `json:"workerId" validate:"required"`
}

// ExecuteJobsCmd is used to execute due jobs, which match the specified conditions.
type ExecuteJobsCmd struct {
	// Batch condition.
	BatchId int64 `json:"batchId,omitempty"`

	// Maximum number of jobs to execute.
	Limit int `json:"limit" validate:"gte=1,lte=1000"`

	// ID of the worker that executes the jobs.
	WorkerId string `json:"workerId" validate:"required"`
}

// GetVariablesCmd is used to get variables, visible from a scope.
type GetVariablesCmd struct {
	// Scope ID.
	ScopeId int64 `json:"scopeId" validate:"required"`
	// Optional names of the variables to get. If empty, all variables are returned.
	Names []string `json:"names,omitempty"`
	// Determines if only the variables of the scope itself are returned.
	Local bool `json:"local,omitempty"`
}

// RemoveVariablesCmd is used to remove variables, visible from a scope.
type RemoveVariablesCmd struct {
	// Scope ID.
	ScopeId int64 `json:"scopeId" validate:"required"`
	// Names of the variables to remove.
	Names []string `json:"names" validate:"required,min=1,max=100"`
	// Determines if only variables of the scope itself are removed.
	Local bool `json:"local,omitempty"`

	// ID of the worker that removed the variables.
	WorkerId string `json:"workerId" validate:"required"`
}

// SetTimeCmd is a command for increasing the engine's time for testing purposes.
type SetTimeCmd struct {
	// A future point in time.
	Time time.Time `json:"time" validate:"required"`
}

// SetVariablesCmd is used to set variables, using a scope as source execution.
type SetVariablesCmd struct {
	// Scope ID.
	ScopeId int64 `json:"scopeId" validate:"required"`
	// Variables to set.
	Variables map[string]any `json:"variables" validate:"required,min=1,max=100,dive,keys,variable_name,endkeys"`
	// Determines if the variables are set on the scope itself, instead of the nearest scope that owns them.
	Local bool `json:"local,omitempty"`

	// ID of the worker that set the variables.
	WorkerId string `json:"workerId" validate:"required"`
}

// TransitionScopeCmd is used to perform a lifecycle transition on a scope.
type TransitionScopeCmd struct {
	// Scope ID.
	ScopeId int64 `json:"scopeId" validate:"required"`
	// The transition to perform.
	Transition Transition `json:"transition" validate:"required"`

	// ID of the worker that performed the transition.
	WorkerId string `json:"workerId" validate:"required"`
}

// command related types

// A Resource is part of a deployment.
type Resource struct {
	Name    string `json:"name" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}
