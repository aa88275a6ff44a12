package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	DefaultEngineId = "default-engine" // Default ID of an engine, used when no specific ID is provided via [Options].
)

// An Engine creates, executes and manages case instances, based on the CMMN 1.1 specification.
//
// Each command is executed atomically: when a command fails (e.g. a listener returns an error), all changes,
// including the changes of listeners that have been notified before, are discarded.
type Engine interface {
	// CreateBatch creates a batch, consisting of one job per case instance.
	CreateBatch(context.Context, CreateBatchCmd) (Batch, error)

	// CreateCaseInstance creates an instance of a deployed case definition.
	//
	// The case plan model is activated and its plan items are created. Plan items, which require a manual
	// activation, are enabled. All other plan items, except milestones, are started.
	CreateCaseInstance(context.Context, CreateCaseInstanceCmd) (Scope, error)

	// CreateChildScope creates a scope for a plan item within an existing, not yet ended, parent scope.
	CreateChildScope(context.Context, CreateChildScopeCmd) (Scope, error)

	// CreateDeployment deploys case models and script resources.
	//
	// Each case of a case model results in a new definition version, counted per case ID and tenant.
	CreateDeployment(context.Context, CreateDeploymentCmd) (Deployment, error)

	// CreateQuery creates a query with default options.
	CreateQuery() Query

	// ExecuteJob executes a specific job, regardless of its due date.
	ExecuteJob(context.Context, ExecuteJobCmd) (Job, error)

	// ExecuteJobs executes due jobs, which match the specified conditions. Each job is executed in its own command.
	//
	// Due jobs are normally handled by a job executor, running inside the engine.
	// When waiting for a due job to be completed during testing, this method must be called!
	ExecuteJobs(context.Context, ExecuteJobsCmd) ([]Job, []Job, error)

	// GetVariables gets the variables, visible from a scope.
	GetVariables(context.Context, GetVariablesCmd) (map[string]any, error)

	// RemoveVariables removes variables, visible from a scope.
	RemoveVariables(context.Context, RemoveVariablesCmd) error

	// SetTime increases the engine's time for testing purposes.
	SetTime(context.Context, SetTimeCmd) error

	// SetVariables sets variables, using the scope as source execution.
	SetVariables(context.Context, SetVariablesCmd) error

	// TransitionScope performs a lifecycle transition on a scope.
	TransitionScope(context.Context, TransitionScopeCmd) (Scope, error)

	// Shutdown shuts the engine down.
	Shutdown()
}

// A Query allows to query entities, using query options.
//
// All queries are subject to the tenant check: only entities, visible to the [Authentication] of the
// context, are returned.
type Query interface {
	QueryBatches(context.Context, BatchCriteria) ([]Batch, error)
	QueryDefinitions(context.Context, DefinitionCriteria) ([]Definition, error)
	QueryDefinitionStatistics(context.Context, DefinitionStatisticsCriteria) ([]DefinitionStatistics, error)
	QueryDeployments(context.Context, DeploymentCriteria) ([]Deployment, error)
	QueryJobs(context.Context, JobCriteria) ([]Job, error)
	QueryOperationLog(context.Context, OperationLogCriteria) ([]OperationLogEntry, error)
	QueryScopes(context.Context, ScopeCriteria) ([]Scope, error)
	QueryTasks(context.Context, TaskCriteria) ([]Task, error)
	QueryVariables(context.Context, VariableCriteria) ([]Variable, error)

	// SetOptions sets options that are used when performing a query.
	SetOptions(QueryOptions)
}

// NewOptions returns the common default options.
func NewOptions() Options {
	return Options{
		DefaultQueryLimit: 1000,
		EngineId:          DefaultEngineId,
		NodeId:            1,

		TenantCheckEnabled:    true,
		InvokeCustomListeners: true,
		BuiltinListenersFirst: true,
		MaxDispatchDepth:      64,

		DefinitionCacheSize: 256,
		ScriptCacheSize:     256,

		JobExecutorEnabled:  false,
		JobExecutorInterval: 60 * time.Second,
		JobExecutorLimit:    10,
		JobRetryLimit:       2,

		Logger: zap.NewNop(),
	}
}

// Options are common configuration options that are shared between engine implementations.
type Options struct {
	DefaultQueryLimit int    // Default limit for queries, executed without an explicit limit.
	EngineId          string // ID of the engine.
	NodeId            int64  // Node number of the engine's ID generator - must be unique per engine sharing a database.

	TenantCheckEnabled    bool              // Enables or disables the tenant check of queries and commands.
	InvokeCustomListeners bool              // Enables or disables the notification of listeners, deployed as part of a case model.
	BuiltinListenersFirst bool              // Determines if built-in listeners are notified before custom listeners.
	BuiltinListeners      []BuiltinListener // Listeners, registered programmatically.
	MaxDispatchDepth      int               // Maximum nesting of listener notifications, triggered by other listeners.

	// Classes maps class names, referenced by class listeners, to factories that create a new instance per notification.
	Classes map[string]func() (any, error)
	// Beans are named objects, resolvable by expression and delegate expression listeners.
	Beans map[string]any

	DefinitionCacheSize int // Maximum number of parsed definitions to cache.
	ScriptCacheSize     int // Maximum number of compiled scripts to cache.

	JobExecutorEnabled  bool          // Enables or disables the engine's job executor.
	JobExecutorInterval time.Duration // Interval between execution of due jobs.
	JobExecutorLimit    int           // Maximum number of due jobs to execute at once.
	JobRetryLimit       int           // Maximum number of job retries.

	Logger            *zap.Logger           // Logger, used by the engine.
	MetricsRegisterer prometheus.Registerer // If set, listener and command metrics are registered.

	OnJobExecutionFailure func(Job, error) // Called when the engine failed to execute a job.
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.EngineId) == "" {
		return errors.New("engine ID must not be empty or blank")
	}
	if o.NodeId < 0 || o.NodeId > 1023 {
		return errors.New("node ID must be between 0 and 1023")
	}
	if o.DefaultQueryLimit < 1 {
		return errors.New("default query limit must be greater than or equal to 1")
	}
	if o.MaxDispatchDepth < 1 {
		return errors.New("max dispatch depth must be greater than or equal to 1")
	}
	if o.DefinitionCacheSize < 1 {
		return errors.New("definition cache size must be greater than or equal to 1")
	}
	if o.ScriptCacheSize < 1 {
		return errors.New("script cache size must be greater than or equal to 1")
	}
	if o.JobExecutorInterval.Milliseconds() < 1000 {
		return errors.New("job executor interval must be greater than or equal to 1000 ms")
	}
	if o.JobExecutorLimit < 1 {
		return errors.New("job executor limit must be greater than or equal to 1")
	}
	if o.JobExecutorLimit > 1000 {
		return errors.New("job executor limit must be must be less than or equal to 1000")
	}
	if o.JobRetryLimit < 0 {
		return errors.New("job retry limit must be greater than or equal to 0")
	}
	if o.Logger == nil {
		return errors.New("logger must not be nil")
	}

	for i, builtinListener := range o.BuiltinListeners {
		switch builtinListener.Listener.(type) {
		case CaseExecutionListener, CaseVariableListener:
		default:
			return fmt.Errorf("built-in listener #%d must implement CaseExecutionListener or CaseVariableListener", i)
		}
	}
	for name, factory := range o.Classes {
		if factory == nil {
			return fmt.Errorf("factory of class %s must not be nil", name)
		}
	}

	return nil
}

// QueryOptions are used to limit, offset or order query results.
// The zero value does not affect a query.
type QueryOptions struct {
	// Limit specifies the maximum number of results to return.
	// If Limit <= 0, the option's DefaultQueryLimit is applied.
	Limit int
	// Offset specifies the number of results to skip, before returning any result.
	// If Offset <= 0, no results are skipped.
	Offset int
	// OrderBy specifies the sort order of the results. By default, results are ordered by ID.
	OrderBy OrderBy
	// Desc reverses the sort order.
	Desc bool
}

// OrderBy specifies the property, query results are sorted by.
//
// When sorting by tenant ID, the position of entities without tenant is not guaranteed across engine
// implementations.
type OrderBy int

const (
	OrderById OrderBy = iota
	OrderByTenantId
	OrderByVersion // Applicable to definitions only.
)

func MapOrderBy(s string) OrderBy {
	switch s {
	case "TENANT_ID":
		return OrderByTenantId
	case "VERSION":
		return OrderByVersion
	default:
		return OrderById
	}
}

func (v OrderBy) String() string {
	switch v {
	case OrderByTenantId:
		return "TENANT_ID"
	case OrderByVersion:
		return "VERSION"
	default:
		return "ID"
	}
}

type Error struct {
	Type   ErrorType
	Title  string
	Detail string
	Causes []ErrorCause
}

func (e Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s: %s", e.Type, e.Title, e.Detail))

	for _, cause := range e.Causes {
		sb.WriteRune('\n')
		sb.WriteString(cause.String())
	}

	return sb.String()
}

type ErrorType int

const (
	ErrorBug ErrorType = iota + 1
	ErrorConflict
	ErrorNotFound
	ErrorQuery
	ErrorValidation
	ErrorConfiguration        // A listener class does not implement the required listener interface.
	ErrorInstantiation        // A listener class cannot be instantiated.
	ErrorExpressionResolution // A delegate expression does not resolve to a listener.
	ErrorIllegalState         // A lifecycle transition violates the preconditions of a scope's state.
	ErrorInvalidArgument      // An argument like a tenant ID list is invalid.
	ErrorForbidden            // The authentication does not permit to access an entity.
)

func MapErrorType(s string) ErrorType {
	switch s {
	case "BUG":
		return ErrorBug
	case "CONFLICT":
		return ErrorConflict
	case "NOT_FOUND":
		return ErrorNotFound
	case "QUERY":
		return ErrorQuery
	case "VALIDATION":
		return ErrorValidation
	case "CONFIGURATION":
		return ErrorConfiguration
	case "INSTANTIATION":
		return ErrorInstantiation
	case "EXPRESSION_RESOLUTION":
		return ErrorExpressionResolution
	case "ILLEGAL_STATE":
		return ErrorIllegalState
	case "INVALID_ARGUMENT":
		return ErrorInvalidArgument
	case "FORBIDDEN":
		return ErrorForbidden
	default:
		return 0
	}
}

func (v ErrorType) String() string {
	switch v {
	case ErrorBug:
		return "BUG"
	case ErrorConflict:
		return "CONFLICT"
	case ErrorNotFound:
		return "NOT_FOUND"
	case ErrorQuery:
		return "QUERY"
	case ErrorValidation:
		return "VALIDATION"
	case ErrorConfiguration:
		return "CONFIGURATION"
	case ErrorInstantiation:
		return "INSTANTIATION"
	case ErrorExpressionResolution:
		return "EXPRESSION_RESOLUTION"
	case ErrorIllegalState:
		return "ILLEGAL_STATE"
	case ErrorInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrorForbidden:
		return "FORBIDDEN"
	default:
		return "UNKNOWN"
	}
}

// A cause of a validation [Error] like an invalid command field or an invalid case model element.
type ErrorCause struct {
	Pointer string // A pointer, locating the invalid field or case model element.
	Type    string // Type indicator.
	Detail  string // Human-readable, detailed information about the cause.
}

func (e ErrorCause) String() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Pointer, e.Detail)
}
