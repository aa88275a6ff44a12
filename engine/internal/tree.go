package internal

import (
	"fmt"
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
	"github.com/jackc/pgx/v5/pgtype"
)

// A scopeNode is a scope of a loaded case instance tree.
type scopeNode struct {
	entity  *ScopeEntity
	element *model.Element
	parent  int // Index of the parent node or -1 for the case instance.

	variables    map[string]*variableNode
	task         *TaskEntity
	taskInserted bool

	inserted bool
	updated  bool
	removed  bool
}

type variableNode struct {
	entity *VariableEntity
	value  any

	inserted bool
	updated  bool
}

// caseTree is an arena of the scopes of one case instance, including their variables and tasks.
//
// Nodes are linked to their parent by index and never removed from the arena. A removed scope is only flagged, so
// that indices stay stable while listeners are notified. Changes are written to the repositories by flush.
type caseTree struct {
	ctx        Context
	definition *Definition
	nodes      []*scopeNode
	workerId   string

	removedScopes    []*ScopeEntity
	removedTasks     []*TaskEntity
	removedVariables []*VariableEntity
}

func newCaseTree(ctx Context, definition *Definition, workerId string) *caseTree {
	return &caseTree{
		ctx:        ctx,
		definition: definition,
		workerId:   workerId,
	}
}

// loadCaseTree loads all scopes, variables and tasks of a case instance.
func loadCaseTree(ctx Context, caseInstanceId int64, workerId string) (*caseTree, error) {
	scopes, err := ctx.Scopes().SelectByCaseInstance(caseInstanceId)
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("case instance %d has no scopes", caseInstanceId)
	}

	scopes, err = orderByParent(scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to load case instance %d: %v", caseInstanceId, err)
	}

	definition, err := ctx.Services().DefinitionCache.GetOrCache(ctx, scopes[0].DefinitionId)
	if err != nil {
		return nil, err
	}

	t := newCaseTree(ctx, definition, workerId)

	indices := make(map[int64]int, len(scopes))
	for _, scope := range scopes {
		element := definition.Case.ElementById(scope.ActivityId)
		if element == nil {
			return nil, fmt.Errorf("definition %d has no element %s", scope.DefinitionId, scope.ActivityId)
		}

		parent := -1
		if scope.ParentId.Valid {
			i, ok := indices[scope.ParentId.Int64]
			if !ok {
				return nil, fmt.Errorf("parent %d of scope %d could not be found", scope.ParentId.Int64, scope.Id)
			}
			parent = i
		}

		indices[scope.Id] = len(t.nodes)
		t.nodes = append(t.nodes, &scopeNode{
			entity:    scope,
			element:   element,
			parent:    parent,
			variables: make(map[string]*variableNode),
		})
	}

	variables, err := ctx.Variables().SelectByCaseInstance(caseInstanceId)
	if err != nil {
		return nil, err
	}
	for _, variable := range variables {
		i, ok := indices[variable.ScopeId]
		if !ok {
			return nil, fmt.Errorf("scope %d of variable %d could not be found", variable.ScopeId, variable.Id)
		}

		value, err := DecodeValue(variable.TypeName, variable.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode variable %d: %v", variable.Id, err)
		}

		t.nodes[i].variables[variable.Name] = &variableNode{entity: variable, value: value}
	}

	tasks, err := ctx.Tasks().SelectByCaseInstance(caseInstanceId)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if i, ok := indices[task.ScopeId]; ok {
			t.nodes[i].task = task
		}
	}

	return t, nil
}

// orderByParent orders scopes in pre-order, starting at the case instance. Siblings keep their relative order.
//
// Scope IDs, generated by engines with different node IDs, are not ordered by time. So a child may have a smaller ID
// than its parent.
func orderByParent(scopes []*ScopeEntity) ([]*ScopeEntity, error) {
	var root *ScopeEntity

	children := make(map[int64][]*ScopeEntity, len(scopes))
	for _, scope := range scopes {
		if !scope.ParentId.Valid {
			if root != nil {
				return nil, fmt.Errorf("scopes %d and %d have no parent", root.Id, scope.Id)
			}
			root = scope
			continue
		}
		children[scope.ParentId.Int64] = append(children[scope.ParentId.Int64], scope)
	}
	if root == nil {
		return nil, fmt.Errorf("no scope without parent found")
	}

	ordered := make([]*ScopeEntity, 0, len(scopes))

	stack := []*ScopeEntity{root}
	for len(stack) != 0 {
		scope := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ordered = append(ordered, scope)

		scopeChildren := children[scope.Id]
		for j := len(scopeChildren) - 1; j >= 0; j-- {
			stack = append(stack, scopeChildren[j])
		}
	}

	if len(ordered) != len(scopes) {
		for _, scope := range scopes {
			if !slices.Contains(ordered, scope) {
				return nil, fmt.Errorf("parent %d of scope %d could not be found", scope.ParentId.Int64, scope.Id)
			}
		}
	}

	return ordered, nil
}

// index returns the index of a scope.
func (t *caseTree) index(scopeId int64) (int, bool) {
	for i, node := range t.nodes {
		if node.entity.Id == scopeId {
			return i, true
		}
	}
	return -1, false
}

func (t *caseTree) root() *scopeNode {
	return t.nodes[0]
}

// children returns the indices of the existing children of a scope, in the order of creation.
func (t *caseTree) children(i int) []int {
	var children []int
	for j, node := range t.nodes {
		if node.parent == i && !node.removed {
			children = append(children, j)
		}
	}
	return children
}

// descendants returns the indices of the existing descendants of a scope in pre-order.
func (t *caseTree) descendants(i int) []int {
	var descendants []int
	for _, child := range t.children(i) {
		descendants = append(descendants, child)
		descendants = append(descendants, t.descendants(child)...)
	}
	return descendants
}

// addScope adds a new scope for a case plan model or plan item element.
func (t *caseTree) addScope(parent int, element *model.Element, state engine.ScopeState) int {
	ctx := t.ctx

	scope := ScopeEntity{
		Id: ctx.Services().NextId(),

		DefinitionId: t.definition.Entity.Id,

		ActivityId:   element.Id,
		ActivityType: element.Type,
		CreatedAt:    ctx.Time(),
		CreatedBy:    t.workerId,
		State:        state,
		TenantId:     t.definition.Entity.TenantId,
	}

	if parent == -1 {
		scope.CaseInstanceId = scope.Id
	} else {
		scope.CaseInstanceId = t.root().entity.Id
		scope.ParentId = pgtype.Int8{Int64: t.nodes[parent].entity.Id, Valid: true}
	}

	t.nodes = append(t.nodes, &scopeNode{
		entity:    &scope,
		element:   element,
		parent:    parent,
		variables: make(map[string]*variableNode),
		inserted:  true,
	})

	return len(t.nodes) - 1
}

// setState changes the state of a scope. A terminal state sets the end time.
func (t *caseTree) setState(i int, state engine.ScopeState) {
	node := t.nodes[i]
	node.entity.State = state
	node.updated = true

	if state.IsTerminal() {
		node.entity.EndedAt = pgtype.Timestamp{Time: t.ctx.Time(), Valid: true}
	}
}

// remove flags a scope as removed, together with its variables and task.
func (t *caseTree) remove(i int) {
	node := t.nodes[i]
	if node.removed {
		return
	}

	node.removed = true
	if !node.inserted {
		t.removedScopes = append(t.removedScopes, node.entity)
	}

	names := make([]string, 0, len(node.variables))
	for name := range node.variables {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if variable := node.variables[name]; !variable.inserted {
			t.removedVariables = append(t.removedVariables, variable.entity)
		}
	}
	clear(node.variables)

	t.removeTask(i)
}

func (t *caseTree) addTask(i int) {
	node := t.nodes[i]
	if node.task != nil {
		return
	}

	node.task = &TaskEntity{
		Id: t.ctx.Services().NextId(),

		CaseInstanceId: node.entity.CaseInstanceId,
		DefinitionId:   node.entity.DefinitionId,
		ScopeId:        node.entity.Id,

		ActivityId: node.entity.ActivityId,
		CreatedAt:  t.ctx.Time(),
		Name:       text(node.element.Name),
		TenantId:   node.entity.TenantId,
	}
	node.taskInserted = true
}

func (t *caseTree) removeTask(i int) {
	node := t.nodes[i]
	if node.task == nil {
		return
	}

	if !node.taskInserted {
		t.removedTasks = append(t.removedTasks, node.task)
	}
	node.task = nil
	node.taskInserted = false
}

// owner resolves the nearest scope, starting at i, which owns a variable.
func (t *caseTree) owner(i int, name string) (int, bool) {
	for j := i; j != -1; j = t.nodes[j].parent {
		if _, ok := t.nodes[j].variables[name]; ok {
			return j, true
		}
	}
	return -1, false
}

// variables returns the variables, visible from a scope. Variables of a scope shadow the variables of its ancestors.
func (t *caseTree) variables(i int, local bool) map[string]any {
	var path []int
	if local {
		path = []int{i}
	} else {
		for j := i; j != -1; j = t.nodes[j].parent {
			path = append(path, j)
		}
		slices.Reverse(path)
	}

	variables := make(map[string]any)
	for _, j := range path {
		for name, variable := range t.nodes[j].variables {
			variables[name] = variable.value
		}
	}
	return variables
}

// variable gets a variable, visible from a scope.
func (t *caseTree) variable(i int, name string, local bool) (any, bool) {
	if local {
		variable, ok := t.nodes[i].variables[name]
		if !ok {
			return nil, false
		}
		return variable.value, true
	}

	owner, ok := t.owner(i, name)
	if !ok {
		return nil, false
	}
	return t.nodes[owner].variables[name].value, true
}

// setVariable creates or updates a variable and returns the resulting variable event.
//
// A local write targets the scope itself. Otherwise the nearest scope, which owns the variable, is updated or the
// variable is created on the scope itself.
func (t *caseTree) setVariable(i int, name string, value any, local bool) (variableEvent, error) {
	if err := t.checkWritable(i, "failed to set variable"); err != nil {
		return variableEvent{}, err
	}

	value, err := NormalizeValue(value)
	if err != nil {
		return variableEvent{}, t.invalidValue(name, err)
	}
	typeName, encoded, err := EncodeValue(value)
	if err != nil {
		return variableEvent{}, t.invalidValue(name, err)
	}

	owner := i
	if !local {
		if j, ok := t.owner(i, name); ok {
			owner = j
		}
	}

	ctx := t.ctx
	node := t.nodes[owner]

	if variable, ok := node.variables[name]; ok {
		variable.entity.SourceScopeId = t.nodes[i].entity.Id
		variable.entity.TypeName = typeName
		variable.entity.UpdatedAt = ctx.Time()
		variable.entity.UpdatedBy = t.workerId
		variable.entity.Value = encoded
		variable.value = value
		variable.updated = true

		return variableEvent{event: engine.EventUpdate, name: name, value: value, source: i, owner: owner}, nil
	}

	entity := VariableEntity{
		Id: ctx.Services().NextId(),

		CaseInstanceId: node.entity.CaseInstanceId,
		ScopeId:        node.entity.Id,
		SourceScopeId:  t.nodes[i].entity.Id,

		CreatedAt: ctx.Time(),
		CreatedBy: t.workerId,
		Name:      name,
		TenantId:  node.entity.TenantId,
		TypeName:  typeName,
		UpdatedAt: ctx.Time(),
		UpdatedBy: t.workerId,
		Value:     encoded,
	}

	node.variables[name] = &variableNode{entity: &entity, value: value, inserted: true}

	return variableEvent{event: engine.EventCreate, name: name, value: value, source: i, owner: owner}, nil
}

// removeVariable removes a variable, resolved like a write. If no scope owns the variable, false is returned.
func (t *caseTree) removeVariable(i int, name string, local bool) (variableEvent, bool, error) {
	if err := t.checkWritable(i, "failed to remove variable"); err != nil {
		return variableEvent{}, false, err
	}

	owner := i
	if !local {
		j, ok := t.owner(i, name)
		if !ok {
			return variableEvent{}, false, nil
		}
		owner = j
	}

	node := t.nodes[owner]

	variable, ok := node.variables[name]
	if !ok {
		return variableEvent{}, false, nil
	}

	delete(node.variables, name)
	if !variable.inserted {
		t.removedVariables = append(t.removedVariables, variable.entity)
	}

	return variableEvent{event: engine.EventDelete, name: name, value: variable.value, source: i, owner: owner}, true, nil
}

func (t *caseTree) checkWritable(i int, title string) error {
	node := t.nodes[i]
	if !node.removed && node.entity.State != engine.ScopeClosed {
		return nil
	}
	return engine.Error{
		Type:   engine.ErrorIllegalState,
		Title:  title,
		Detail: fmt.Sprintf("scope %d/%s has ended", node.entity.Id, node.entity.ActivityId),
	}
}

func (t *caseTree) invalidValue(name string, err error) error {
	return engine.Error{
		Type:   engine.ErrorValidation,
		Title:  "failed to set variable",
		Detail: fmt.Sprintf("value of variable %s is invalid: %v", name, err),
	}
}

// flush writes all changes to the repositories.
func (t *caseTree) flush() error {
	ctx := t.ctx

	for _, variable := range t.removedVariables {
		if err := ctx.Variables().Delete(variable.Id); err != nil {
			return err
		}
	}
	for _, task := range t.removedTasks {
		if err := ctx.Tasks().Delete(task.Id); err != nil {
			return err
		}
	}
	for _, scope := range t.removedScopes {
		if err := ctx.Scopes().Delete(scope.Id); err != nil {
			return err
		}
	}

	for _, node := range t.nodes {
		if node.removed {
			continue
		}

		switch {
		case node.inserted:
			if err := ctx.Scopes().Insert(node.entity); err != nil {
				return err
			}
		case node.updated:
			if err := ctx.Scopes().Update(node.entity); err != nil {
				return err
			}
		}
	}

	for _, node := range t.nodes {
		if node.removed {
			continue
		}

		if node.task != nil && node.taskInserted {
			if err := ctx.Tasks().Insert(node.task); err != nil {
				return err
			}
		}

		names := make([]string, 0, len(node.variables))
		for name := range node.variables {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			variable := node.variables[name]
			switch {
			case variable.inserted:
				if err := ctx.Variables().Insert(variable.entity); err != nil {
					return err
				}
			case variable.updated:
				if err := ctx.Variables().Update(variable.entity); err != nil {
					return err
				}
			}
		}
	}

	t.removedScopes = nil
	t.removedTasks = nil
	t.removedVariables = nil
	return nil
}
