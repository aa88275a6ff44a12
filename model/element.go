package model

import "slices"

// Execution listener events.
var ExecutionEvents = []string{
	"create",
	"enable",
	"disable",
	"reenable",
	"manualStart",
	"start",
	"complete",
	"terminate",
	"parentTerminate",
	"suspend",
	"parentSuspend",
	"resume",
	"parentResume",
	"occur",
	"exit",
	"close",
	"reactivate",
}

// Variable listener events.
var VariableEvents = []string{
	"create",
	"update",
	"delete",
}

type Element struct {
	Id   string
	Name string
	Type ElementType

	AutoComplete     bool
	ManualActivation bool

	Parent   *Element
	Elements []*Element

	Listeners         []*Listener
	VariableListeners []*Listener
}

func (e *Element) AllElements() []*Element {
	all := []*Element{e}

	i := 0
	for i < len(all) {
		all = append(all, all[i].Elements...)
		i++
	}

	return all
}

func (e *Element) ElementById(id string) *Element {
	for i := 0; i < len(e.Elements); i++ {
		if e.Elements[i].Id == id {
			return e.Elements[i]
		}
	}
	return nil
}

func (e *Element) ElementsByType(elementType ElementType) []*Element {
	var elements []*Element
	for i := 0; i < len(e.Elements); i++ {
		if e.Elements[i].Type == elementType {
			elements = append(elements, e.Elements[i])
		}
	}
	return elements
}

// ExecutionListeners returns the execution listeners, registered for a specific event, in the order of definition.
func (e *Element) ExecutionListeners(event string) []*Listener {
	return filterListeners(e.Listeners, event)
}

// VariableListenersFor returns the variable listeners, registered for a specific event, in the order of definition.
func (e *Element) VariableListenersFor(event string) []*Listener {
	return filterListeners(e.VariableListeners, event)
}

func filterListeners(listeners []*Listener, event string) []*Listener {
	var filtered []*Listener
	for _, listener := range listeners {
		if listener.Event == "" || listener.Event == event {
			filtered = append(filtered, listener)
		}
	}
	return filtered
}

// A Listener is a custom listener, deployed as part of a case model.
//
// Exactly one of Class, Expression, DelegateExpression or Script is set.
type Listener struct {
	Event string // Triggering event - empty means all events.

	Class              string
	Expression         string
	DelegateExpression string
	Script             *Script

	Fields []*Field
}

// SourceKind returns the kind of the listener implementation, used for logging and metrics.
func (l *Listener) SourceKind() string {
	switch {
	case l.Class != "":
		return "class"
	case l.DelegateExpression != "":
		return "delegateExpression"
	case l.Expression != "":
		return "expression"
	case l.Script != nil && l.Script.Resource != "":
		return "scriptResource"
	case l.Script != nil:
		return "script"
	default:
		return ""
	}
}

// A Script is either provided inline or as resource of the same deployment.
type Script struct {
	Format   string
	Source   string
	Resource string
}

// A Field is injected into a class or delegate expression listener, before it is notified.
type Field struct {
	Name        string
	StringValue string
	Expression  string
}

func isExecutionEvent(event string) bool {
	return slices.Contains(ExecutionEvents, event)
}

func isVariableEvent(event string) bool {
	return slices.Contains(VariableEvents, event)
}
