package engine

import (
	"context"

	"github.com/gclaussn/go-cmmn/model"
)

// CaseExecutionListener is notified about lifecycle events of scopes.
//
// A listener is notified synchronously, within the command that caused the event. When an error is returned,
// the command fails and all of its changes are discarded.
type CaseExecutionListener interface {
	Notify(context.Context, DelegateCaseExecution) error
}

// CaseVariableListener is notified when a variable is created, updated or deleted.
type CaseVariableListener interface {
	Notify(context.Context, DelegateCaseVariableInstance) error
}

// CaseExecutionListenerFunc is an adapter to use an ordinary function as [CaseExecutionListener].
type CaseExecutionListenerFunc func(context.Context, DelegateCaseExecution) error

func (f CaseExecutionListenerFunc) Notify(ctx context.Context, execution DelegateCaseExecution) error {
	return f(ctx, execution)
}

// CaseVariableListenerFunc is an adapter to use an ordinary function as [CaseVariableListener].
type CaseVariableListenerFunc func(context.Context, DelegateCaseVariableInstance) error

func (f CaseVariableListenerFunc) Notify(ctx context.Context, variable DelegateCaseVariableInstance) error {
	return f(ctx, variable)
}

// A BuiltinListener is registered programmatically via [Options]. Built-in listeners are always notified,
// even when the notification of custom listeners is disabled.
type BuiltinListener struct {
	DefinitionKey string    // Key of the definitions to listen to - empty means all definitions.
	ActivityId    string    // Plan item or case plan model ID to listen to - empty means all activities.
	Event         EventName // Event to listen to - empty means all events.

	Listener any // A CaseExecutionListener or a CaseVariableListener.
}

// Matches determines if the built-in listener is applicable.
func (l BuiltinListener) Matches(definitionKey string, activityId string, event EventName) bool {
	if l.DefinitionKey != "" && l.DefinitionKey != definitionKey {
		return false
	}
	if l.ActivityId != "" && l.ActivityId != activityId {
		return false
	}
	if l.Event != "" && l.Event != event {
		return false
	}
	return true
}

// DelegateCaseExecution is the view of a scope, a listener is notified with.
//
// It always reflects the current state of the scope and can be used to read and write variables or to complete
// and terminate the scope. Each write is dispatched to the variable listeners before the call returns, unless
// it is done by a variable listener - then it is dispatched after the current event's listeners were notified.
type DelegateCaseExecution interface {
	Id() int64
	CaseInstanceId() int64
	DefinitionId() int64
	ParentId() int64

	ActivityId() string
	ActivityName() string
	ActivityType() model.ElementType
	BusinessKey() string
	EventName() EventName // Name of the event, the listener is notified about. Empty for a variable event.
	State() ScopeState
	TenantId() string

	// Variable gets a variable, visible from the scope.
	Variable(name string) any
	// VariableLocal gets a variable of the scope itself.
	VariableLocal(name string) any
	// Variables gets all variables, visible from the scope. Variables of the scope itself shadow ancestor variables.
	Variables() map[string]any
	// VariablesLocal gets all variables of the scope itself.
	VariablesLocal() map[string]any
	HasVariable(name string) bool

	// SetVariable updates the variable of the nearest scope that owns it or creates it on the scope.
	SetVariable(name string, value any) error
	// SetVariableLocal creates or updates a variable of the scope itself.
	SetVariableLocal(name string, value any) error
	// RemoveVariable removes the variable of the nearest scope that owns it. Nothing happens, if no scope owns it.
	RemoveVariable(name string) error
	// RemoveVariableLocal removes a variable of the scope itself.
	RemoveVariableLocal(name string) error

	Complete() error
	Terminate() error
}

// DelegateCaseVariableInstance is the view of a variable event, a listener is notified with.
type DelegateCaseVariableInstance interface {
	EventName() EventName
	Name() string
	Value() any // New value or, in case of a deletion, the removed value.

	CaseInstanceId() int64
	ScopeId() int64            // ID of the owning scope.
	ActivityInstanceId() int64 // ID of the owning scope.
	TenantId() string

	// SourceExecution is the scope, the write was requested on. It may differ from the owning scope.
	SourceExecution() DelegateCaseExecution
}
