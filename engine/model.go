package engine

import (
	"fmt"
	"time"

	"github.com/gclaussn/go-cmmn/model"
)

// ScopeState is the lifecycle state of a scope - a case instance or a plan item instance.
type ScopeState int

const (
	ScopeNew ScopeState = iota + 1
	ScopeEnabled
	ScopeActive
	ScopeDisabled
	ScopeSuspended
	ScopeCompleted
	ScopeTerminated
	ScopeClosed
)

func MapScopeState(s string) ScopeState {
	switch s {
	case "NEW":
		return ScopeNew
	case "ENABLED":
		return ScopeEnabled
	case "ACTIVE":
		return ScopeActive
	case "DISABLED":
		return ScopeDisabled
	case "SUSPENDED":
		return ScopeSuspended
	case "COMPLETED":
		return ScopeCompleted
	case "TERMINATED":
		return ScopeTerminated
	case "CLOSED":
		return ScopeClosed
	default:
		return 0
	}
}

func (v ScopeState) String() string {
	switch v {
	case ScopeNew:
		return "NEW"
	case ScopeEnabled:
		return "ENABLED"
	case ScopeActive:
		return "ACTIVE"
	case ScopeDisabled:
		return "DISABLED"
	case ScopeSuspended:
		return "SUSPENDED"
	case ScopeCompleted:
		return "COMPLETED"
	case ScopeTerminated:
		return "TERMINATED"
	case ScopeClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal determines if no child scopes can be created in the state.
func (v ScopeState) IsTerminal() bool {
	return v == ScopeCompleted || v == ScopeTerminated || v == ScopeClosed
}

// Transition is a lifecycle transition, performed via [TransitionScopeCmd].
type Transition int

const (
	TransitionEnable Transition = iota + 1
	TransitionDisable
	TransitionReenable
	TransitionStart
	TransitionManualStart
	TransitionComplete
	TransitionTerminate
	TransitionSuspend
	TransitionResume
	TransitionOccur
	TransitionExit
	TransitionClose
	TransitionReactivate
)

func MapTransition(s string) Transition {
	switch s {
	case "ENABLE":
		return TransitionEnable
	case "DISABLE":
		return TransitionDisable
	case "REENABLE":
		return TransitionReenable
	case "START":
		return TransitionStart
	case "MANUAL_START":
		return TransitionManualStart
	case "COMPLETE":
		return TransitionComplete
	case "TERMINATE":
		return TransitionTerminate
	case "SUSPEND":
		return TransitionSuspend
	case "RESUME":
		return TransitionResume
	case "OCCUR":
		return TransitionOccur
	case "EXIT":
		return TransitionExit
	case "CLOSE":
		return TransitionClose
	case "REACTIVATE":
		return TransitionReactivate
	default:
		return 0
	}
}

func (v Transition) String() string {
	switch v {
	case TransitionEnable:
		return "ENABLE"
	case TransitionDisable:
		return "DISABLE"
	case TransitionReenable:
		return "REENABLE"
	case TransitionStart:
		return "START"
	case TransitionManualStart:
		return "MANUAL_START"
	case TransitionComplete:
		return "COMPLETE"
	case TransitionTerminate:
		return "TERMINATE"
	case TransitionSuspend:
		return "SUSPEND"
	case TransitionResume:
		return "RESUME"
	case TransitionOccur:
		return "OCCUR"
	case TransitionExit:
		return "EXIT"
	case TransitionClose:
		return "CLOSE"
	case TransitionReactivate:
		return "REACTIVATE"
	default:
		return "UNKNOWN"
	}
}

// EventName is the name of an execution or variable event, a listener is notified about.
type EventName string

const (
	EventCreate          EventName = "create"
	EventEnable          EventName = "enable"
	EventDisable         EventName = "disable"
	EventReenable        EventName = "reenable"
	EventManualStart     EventName = "manualStart"
	EventStart           EventName = "start"
	EventComplete        EventName = "complete"
	EventTerminate       EventName = "terminate"
	EventParentTerminate EventName = "parentTerminate"
	EventSuspend         EventName = "suspend"
	EventParentSuspend   EventName = "parentSuspend"
	EventResume          EventName = "resume"
	EventParentResume    EventName = "parentResume"
	EventOccur           EventName = "occur"
	EventExit            EventName = "exit"
	EventClose           EventName = "close"
	EventReactivate      EventName = "reactivate"

	EventUpdate EventName = "update" // Variable event.
	EventDelete EventName = "delete" // Variable event.
)

// BatchType determines what the jobs of a batch do with their case instance.
type BatchType int

const (
	BatchResume BatchType = iota + 1
	BatchSetVariables
	BatchSuspend
	BatchTerminate
)

func MapBatchType(s string) BatchType {
	switch s {
	case "RESUME":
		return BatchResume
	case "SET_VARIABLES":
		return BatchSetVariables
	case "SUSPEND":
		return BatchSuspend
	case "TERMINATE":
		return BatchTerminate
	default:
		return 0
	}
}

func (v BatchType) String() string {
	switch v {
	case BatchResume:
		return "RESUME"
	case BatchSetVariables:
		return "SET_VARIABLES"
	case BatchSuspend:
		return "SUSPEND"
	case BatchTerminate:
		return "TERMINATE"
	default:
		return "UNKNOWN"
	}
}

type Batch struct {
	Id int64 `json:"id"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy"`
	TenantId    string     `json:"tenantId,omitempty"`
	TotalJobs   int        `json:"totalJobs"`
	Type        BatchType  `json:"type"`
}

func (v Batch) IsCompleted() bool {
	return v.CompletedAt != nil
}

func (v Batch) String() string {
	return fmt.Sprintf("%d", v.Id)
}

type BatchCriteria struct {
	TenantCriteria

	Id   int64
	Type BatchType
}

type Definition struct {
	Id int64 `json:"id"`

	DeploymentId int64 `json:"deploymentId"`

	CreatedAt    time.Time `json:"createdAt"`
	Key          string    `json:"key"`
	Name         string    `json:"name,omitempty"`
	ResourceName string    `json:"resourceName"`
	TenantId     string    `json:"tenantId,omitempty"`
	Version      int       `json:"version"`
}

func (v Definition) String() string {
	return fmt.Sprintf("%s:%d", v.Key, v.Version)
}

type DefinitionCriteria struct {
	TenantCriteria

	Id           int64
	DeploymentId int64
	Key          string
	Version      int

	// LatestVersion restricts the results to the latest version of each key - per tenant.
	// Definitions without tenant form an own group.
	LatestVersion bool
}

// DefinitionStatistics provide the number of running case instances and failed jobs of a definition.
type DefinitionStatistics struct {
	DefinitionId int64 `json:"definitionId"`

	FailedJobs int    `json:"failedJobs"`
	Instances  int    `json:"instances"`
	Key        string `json:"key"`
	TenantId   string `json:"tenantId,omitempty"`
	Version    int    `json:"version"`
}

type DefinitionStatisticsCriteria struct {
	TenantCriteria

	Key string
}

type Deployment struct {
	Id int64 `json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	Name      string    `json:"name"`
	TenantId  string    `json:"tenantId,omitempty"`

	Definitions []Definition `json:"definitions,omitempty"` // Definitions, created by the deployment - set by CreateDeployment only.
}

func (v Deployment) String() string {
	return fmt.Sprintf("%d", v.Id)
}

type DeploymentCriteria struct {
	TenantCriteria

	Id   int64
	Name string
}

// A Job is a unit of work of a batch, executed for exactly one case instance.
type Job struct {
	Id int64 `json:"id"`

	BatchId        int64 `json:"batchId"`
	CaseInstanceId int64 `json:"caseInstanceId"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy"`
	DueAt       time.Time  `json:"dueAt"`
	Error       string     `json:"error,omitempty"`
	RetriesLeft int        `json:"retriesLeft"`
	TenantId    string     `json:"tenantId,omitempty"`
	Type        BatchType  `json:"type"`
}

func (v Job) HasError() bool {
	return v.Error != ""
}

func (v Job) IsCompleted() bool {
	return v.CompletedAt != nil
}

// IsFailed determines if the job has an error and no retries are left.
func (v Job) IsFailed() bool {
	return v.Error != "" && v.RetriesLeft == 0
}

func (v Job) String() string {
	return fmt.Sprintf("%d", v.Id)
}

type JobCriteria struct {
	TenantCriteria

	Id             int64
	BatchId        int64
	CaseInstanceId int64

	Failed bool // Restricts the results to jobs with an error and no retries left.
}

// An OperationLogEntry records a command, performed by a user or worker.
type OperationLogEntry struct {
	Id int64 `json:"id"`

	CaseInstanceId int64 `json:"caseInstanceId,omitempty"`
	EntityId       int64 `json:"entityId"`

	EntityType string    `json:"entityType"`
	Operation  string    `json:"operation"`
	TenantId   string    `json:"tenantId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	UserId     string    `json:"userId,omitempty"`
	WorkerId   string    `json:"workerId"`
}

type OperationLogCriteria struct {
	TenantCriteria

	CaseInstanceId int64
	Operation      string
	UserId         string
}

// A Scope is a case instance or a plan item instance (case execution).
type Scope struct {
	Id int64 `json:"id"`

	CaseInstanceId int64 `json:"caseInstanceId"`
	DefinitionId   int64 `json:"definitionId"`
	ParentId       int64 `json:"parentId,omitempty"`

	ActivityId        string            `json:"activityId"`
	ActivityType      model.ElementType `json:"activityType"`
	BusinessKey       string            `json:"businessKey,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	CreatedBy         string            `json:"createdBy"`
	EndedAt           *time.Time        `json:"endedAt,omitempty"`
	ReactivationCount int               `json:"reactivationCount"`
	State             ScopeState        `json:"state"`
	TenantId          string            `json:"tenantId,omitempty"`
}

func (v Scope) HasParent() bool {
	return v.ParentId != 0
}

func (v Scope) IsCaseInstance() bool {
	return v.Id == v.CaseInstanceId
}

func (v Scope) String() string {
	return fmt.Sprintf("%d/%s", v.Id, v.ActivityId)
}

type ScopeCriteria struct {
	TenantCriteria

	Id             int64
	CaseInstanceId int64
	DefinitionId   int64
	ParentId       int64

	ActivityId  string
	BusinessKey string
	State       ScopeState

	CaseInstancesOnly bool // Restricts the results to case instances.
}

// A Task is created for each active human task.
type Task struct {
	Id int64 `json:"id"`

	CaseInstanceId int64 `json:"caseInstanceId"`
	DefinitionId   int64 `json:"definitionId"`
	ScopeId        int64 `json:"scopeId"`

	ActivityId string    `json:"activityId"`
	CreatedAt  time.Time `json:"createdAt"`
	Name       string    `json:"name,omitempty"`
	TenantId   string    `json:"tenantId,omitempty"`
}

func (v Task) String() string {
	return fmt.Sprintf("%d/%s", v.Id, v.ActivityId)
}

type TaskCriteria struct {
	TenantCriteria

	Id             int64
	CaseInstanceId int64
	ActivityId     string
}

type Variable struct {
	Id int64 `json:"id"`

	CaseInstanceId int64 `json:"caseInstanceId"`
	ScopeId        int64 `json:"scopeId"`       // ID of the owning scope.
	SourceScopeId  int64 `json:"sourceScopeId"` // ID of the scope, the latest write was requested on.

	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	Name      string    `json:"name"`
	TenantId  string    `json:"tenantId,omitempty"`
	TypeName  string    `json:"typeName"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
	Value     any       `json:"value"`
}

func (v Variable) String() string {
	return fmt.Sprintf("%d/%s", v.ScopeId, v.Name)
}

type VariableCriteria struct {
	TenantCriteria

	CaseInstanceId int64
	ScopeId        int64
	Names          []string
}
