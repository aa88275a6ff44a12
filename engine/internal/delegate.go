package internal

import (
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
)

// delegateExecution is the live view of a scope, passed to listeners.
type delegateExecution struct {
	r     *caseRuntime
	index int
	event engine.EventName
}

func (d *delegateExecution) node() *scopeNode {
	return d.r.tree.nodes[d.index]
}

func (d *delegateExecution) Id() int64 {
	return d.node().entity.Id
}

func (d *delegateExecution) CaseInstanceId() int64 {
	return d.node().entity.CaseInstanceId
}

func (d *delegateExecution) DefinitionId() int64 {
	return d.node().entity.DefinitionId
}

func (d *delegateExecution) ParentId() int64 {
	return d.node().entity.ParentId.Int64
}

func (d *delegateExecution) ActivityId() string {
	return d.node().entity.ActivityId
}

func (d *delegateExecution) ActivityName() string {
	return d.node().element.Name
}

func (d *delegateExecution) ActivityType() model.ElementType {
	return d.node().entity.ActivityType
}

// BusinessKey returns the business key of the case instance.
func (d *delegateExecution) BusinessKey() string {
	return d.r.tree.root().entity.BusinessKey.String
}

func (d *delegateExecution) EventName() engine.EventName {
	return d.event
}

func (d *delegateExecution) State() engine.ScopeState {
	return d.node().entity.State
}

func (d *delegateExecution) TenantId() string {
	return d.node().entity.TenantId.String
}

func (d *delegateExecution) Variable(name string) any {
	value, _ := d.r.tree.variable(d.index, name, false)
	return value
}

func (d *delegateExecution) VariableLocal(name string) any {
	value, _ := d.r.tree.variable(d.index, name, true)
	return value
}

func (d *delegateExecution) Variables() map[string]any {
	return d.r.tree.variables(d.index, false)
}

func (d *delegateExecution) VariablesLocal() map[string]any {
	return d.r.tree.variables(d.index, true)
}

func (d *delegateExecution) HasVariable(name string) bool {
	_, ok := d.r.tree.variable(d.index, name, false)
	return ok
}

func (d *delegateExecution) SetVariable(name string, value any) error {
	return d.r.setVariable(d.index, name, value, false)
}

func (d *delegateExecution) SetVariableLocal(name string, value any) error {
	return d.r.setVariable(d.index, name, value, true)
}

func (d *delegateExecution) RemoveVariable(name string) error {
	return d.r.removeVariable(d.index, name, false)
}

func (d *delegateExecution) RemoveVariableLocal(name string) error {
	return d.r.removeVariable(d.index, name, true)
}

func (d *delegateExecution) Complete() error {
	return d.r.transition(d.index, engine.TransitionComplete)
}

func (d *delegateExecution) Terminate() error {
	return d.r.transition(d.index, engine.TransitionTerminate)
}

// delegateVariable is the view of a variable event, passed to variable listeners.
type delegateVariable struct {
	r   *caseRuntime
	evt variableEvent
}

func (d *delegateVariable) owner() *scopeNode {
	return d.r.tree.nodes[d.evt.owner]
}

func (d *delegateVariable) EventName() engine.EventName {
	return d.evt.event
}

func (d *delegateVariable) Name() string {
	return d.evt.name
}

func (d *delegateVariable) Value() any {
	return d.evt.value
}

func (d *delegateVariable) CaseInstanceId() int64 {
	return d.owner().entity.CaseInstanceId
}

func (d *delegateVariable) ScopeId() int64 {
	return d.owner().entity.Id
}

func (d *delegateVariable) ActivityInstanceId() int64 {
	return d.owner().entity.Id
}

func (d *delegateVariable) TenantId() string {
	return d.owner().entity.TenantId.String
}

func (d *delegateVariable) SourceExecution() engine.DelegateCaseExecution {
	return &delegateExecution{r: d.r, index: d.evt.source}
}
