package internal

import (
	"fmt"
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
	"github.com/jackc/pgx/v5/pgtype"
)

func illegalTransition(node *scopeNode, t engine.Transition, reason string) error {
	return engine.Error{
		Type:   engine.ErrorIllegalState,
		Title:  fmt.Sprintf("failed to perform transition %s", t),
		Detail: fmt.Sprintf("scope %d/%s %s", node.entity.Id, node.entity.ActivityId, reason),
	}
}

// createCaseInstance creates the case instance, sets its variables and creates the plan items of the case plan
// model.
func (r *caseRuntime) createCaseInstance(businessKey string, variables map[string]any) error {
	i := r.tree.addScope(-1, r.tree.definition.Case.PlanModel, engine.ScopeActive)
	r.tree.nodes[i].entity.BusinessKey = text(businessKey)

	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := r.setVariable(i, name, variables[name], false); err != nil {
			return err
		}
	}

	if err := r.fire(i, engine.EventCreate); err != nil {
		return err
	}

	if r.isInState(i, engine.ScopeActive) {
		return r.activated(i)
	}
	return nil
}

// createChild creates a scope for a plan item. Unless the plan item is a milestone, it is enabled, when it
// requires a manual activation, or started otherwise.
func (r *caseRuntime) createChild(parent int, element *model.Element) (int, error) {
	i := r.tree.addScope(parent, element, engine.ScopeNew)

	if err := r.fire(i, engine.EventCreate); err != nil {
		return i, err
	}
	if !r.isInState(i, engine.ScopeNew) || element.Type == model.ElementMilestone {
		return i, nil
	}

	if element.ManualActivation {
		r.tree.setState(i, engine.ScopeEnabled)
		return i, r.fire(i, engine.EventEnable)
	}

	r.tree.setState(i, engine.ScopeActive)
	if err := r.fire(i, engine.EventStart); err != nil {
		return i, err
	}
	if r.isInState(i, engine.ScopeActive) {
		return i, r.activated(i)
	}
	return i, nil
}

// activated creates the children of a started stage or case plan model and the task of a started human task.
func (r *caseRuntime) activated(i int) error {
	node := r.tree.nodes[i]

	switch node.element.Type {
	case model.ElementHumanTask:
		r.tree.addTask(i)
	case model.ElementCasePlanModel, model.ElementStage:
		r.activating[i] = true
		for _, element := range node.element.Elements {
			if !r.isInState(i, engine.ScopeActive) {
				break
			}
			if _, err := r.createChild(i, element); err != nil {
				delete(r.activating, i)
				return err
			}
		}
		delete(r.activating, i)

		return r.checkAutoComplete(i)
	}

	return nil
}

func (r *caseRuntime) isInState(i int, state engine.ScopeState) bool {
	node := r.tree.nodes[i]
	return !node.removed && node.entity.State == state
}

// transition performs a lifecycle transition on a scope.
func (r *caseRuntime) transition(i int, t engine.Transition) error {
	node := r.tree.nodes[i]
	if node.removed {
		return illegalTransition(node, t, "has been removed")
	}

	state := node.entity.State
	isCaseInstance := node.parent == -1

	switch t {
	case engine.TransitionEnable:
		if state != engine.ScopeNew {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be NEW", state))
		}
		r.tree.setState(i, engine.ScopeEnabled)
		return r.fire(i, engine.EventEnable)
	case engine.TransitionDisable:
		if state != engine.ScopeEnabled && state != engine.ScopeActive {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be ENABLED or ACTIVE", state))
		}
		if isCaseInstance {
			return illegalTransition(node, t, "is a case instance")
		}
		if err := r.terminateDescendants(i); err != nil {
			return err
		}
		r.tree.setState(i, engine.ScopeDisabled)
		r.tree.removeTask(i)
		if err := r.fire(i, engine.EventDisable); err != nil {
			return err
		}
		return r.checkAutoComplete(node.parent)
	case engine.TransitionReenable:
		if state != engine.ScopeDisabled {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be DISABLED", state))
		}
		r.tree.setState(i, engine.ScopeEnabled)
		return r.fire(i, engine.EventReenable)
	case engine.TransitionStart, engine.TransitionManualStart:
		if state != engine.ScopeEnabled {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be ENABLED", state))
		}
		r.tree.setState(i, engine.ScopeActive)
		if t == engine.TransitionManualStart {
			if err := r.fire(i, engine.EventManualStart); err != nil {
				return err
			}
			if !r.isInState(i, engine.ScopeActive) {
				return nil
			}
		}
		if err := r.fire(i, engine.EventStart); err != nil {
			return err
		}
		if r.isInState(i, engine.ScopeActive) {
			return r.activated(i)
		}
		return nil
	case engine.TransitionComplete:
		if state != engine.ScopeActive {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be ACTIVE", state))
		}
		for _, child := range r.tree.children(i) {
			if r.tree.nodes[child].entity.State == engine.ScopeActive {
				return illegalTransition(node, t, "has active children")
			}
		}
		return r.complete(i)
	case engine.TransitionTerminate:
		if state.IsTerminal() {
			return illegalTransition(node, t, fmt.Sprintf("is %s", state))
		}
		if err := r.terminateDescendants(i); err != nil {
			return err
		}
		return r.end(i, engine.ScopeTerminated, engine.EventTerminate)
	case engine.TransitionSuspend:
		if state != engine.ScopeActive && state != engine.ScopeEnabled {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be ACTIVE or ENABLED", state))
		}
		node.entity.PreviousState = state
		r.tree.setState(i, engine.ScopeSuspended)
		if err := r.fire(i, engine.EventSuspend); err != nil {
			return err
		}
		return r.suspendDescendants(i)
	case engine.TransitionResume:
		if state != engine.ScopeSuspended {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be SUSPENDED", state))
		}
		if node.entity.ParentSuspended {
			return illegalTransition(node, t, "is suspended, because its parent is suspended")
		}
		r.tree.setState(i, node.entity.PreviousState)
		node.entity.PreviousState = 0
		if err := r.fire(i, engine.EventResume); err != nil {
			return err
		}
		return r.resumeDescendants(i)
	case engine.TransitionOccur:
		if node.element.Type != model.ElementMilestone {
			return illegalTransition(node, t, "is not a milestone")
		}
		if state != engine.ScopeNew {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be NEW", state))
		}
		return r.end(i, engine.ScopeCompleted, engine.EventOccur)
	case engine.TransitionExit:
		if state.IsTerminal() {
			return illegalTransition(node, t, fmt.Sprintf("is %s", state))
		}
		descendants := r.tree.descendants(i)
		for j := len(descendants) - 1; j >= 0; j-- {
			r.tree.remove(descendants[j])
		}
		return r.end(i, engine.ScopeTerminated, engine.EventExit)
	case engine.TransitionClose:
		if !isCaseInstance {
			return illegalTransition(node, t, "is not a case instance")
		}
		if state != engine.ScopeCompleted && state != engine.ScopeTerminated {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be COMPLETED or TERMINATED", state))
		}
		r.tree.setState(i, engine.ScopeClosed)
		if err := r.fire(i, engine.EventClose); err != nil {
			return err
		}
		descendants := r.tree.descendants(i)
		for j := len(descendants) - 1; j >= 0; j-- {
			r.tree.remove(descendants[j])
		}
		r.tree.remove(i)
		return nil
	case engine.TransitionReactivate:
		if !isCaseInstance {
			return illegalTransition(node, t, "is not a case instance")
		}
		if state != engine.ScopeCompleted && state != engine.ScopeTerminated {
			return illegalTransition(node, t, fmt.Sprintf("is %s, but must be COMPLETED or TERMINATED", state))
		}
		r.tree.setState(i, engine.ScopeActive)
		node.entity.EndedAt = pgtype.Timestamp{}
		node.entity.ReactivationCount++
		return r.fire(i, engine.EventReactivate)
	default:
		return engine.Error{
			Type:   engine.ErrorValidation,
			Title:  "failed to perform transition",
			Detail: fmt.Sprintf("transition %s is not supported", t),
		}
	}
}

// complete completes a scope, after its remaining descendants were terminated.
func (r *caseRuntime) complete(i int) error {
	if err := r.terminateDescendants(i); err != nil {
		return err
	}
	return r.end(i, engine.ScopeCompleted, engine.EventComplete)
}

// end puts a scope in a terminal state and notifies its listeners. A plan item scope is removed afterwards and
// its parent is checked for auto completion.
func (r *caseRuntime) end(i int, state engine.ScopeState, event engine.EventName) error {
	node := r.tree.nodes[i]

	r.tree.setState(i, state)
	r.tree.removeTask(i)

	if err := r.fire(i, event); err != nil {
		return err
	}

	if node.parent == -1 {
		return nil
	}

	r.tree.remove(i)
	return r.checkAutoComplete(node.parent)
}

// terminateDescendants terminates all non-terminal descendants of a scope, deepest first, and notifies them with
// parentTerminate.
func (r *caseRuntime) terminateDescendants(i int) error {
	descendants := r.tree.descendants(i)
	for j := len(descendants) - 1; j >= 0; j-- {
		d := descendants[j]

		node := r.tree.nodes[d]
		if node.removed || node.entity.State.IsTerminal() {
			continue
		}

		r.tree.setState(d, engine.ScopeTerminated)
		r.tree.removeTask(d)

		if err := r.fire(d, engine.EventParentTerminate); err != nil {
			return err
		}

		r.tree.remove(d)
	}
	return nil
}

// suspendDescendants suspends the NEW, ENABLED and ACTIVE descendants of a suspended scope. Descendants, which are
// already suspended, are skipped together with their subtree.
func (r *caseRuntime) suspendDescendants(i int) error {
	for _, child := range r.tree.children(i) {
		node := r.tree.nodes[child]

		switch node.entity.State {
		case engine.ScopeNew, engine.ScopeEnabled, engine.ScopeActive:
			node.entity.PreviousState = node.entity.State
			node.entity.ParentSuspended = true
			r.tree.setState(child, engine.ScopeSuspended)

			if err := r.fire(child, engine.EventParentSuspend); err != nil {
				return err
			}
		case engine.ScopeSuspended:
			continue
		}

		if err := r.suspendDescendants(child); err != nil {
			return err
		}
	}
	return nil
}

// resumeDescendants resumes the descendants, which were suspended together with a resumed scope. Descendants,
// which were suspended on their own, are skipped together with their subtree.
func (r *caseRuntime) resumeDescendants(i int) error {
	for _, child := range r.tree.children(i) {
		node := r.tree.nodes[child]

		if node.entity.State == engine.ScopeSuspended {
			if !node.entity.ParentSuspended {
				continue
			}

			r.tree.setState(child, node.entity.PreviousState)
			node.entity.PreviousState = 0
			node.entity.ParentSuspended = false

			if err := r.fire(child, engine.EventParentResume); err != nil {
				return err
			}
		}

		if err := r.resumeDescendants(child); err != nil {
			return err
		}
	}
	return nil
}

// checkAutoComplete completes an active scope with auto completion, when none of its children is NEW, ENABLED,
// ACTIVE or SUSPENDED.
func (r *caseRuntime) checkAutoComplete(i int) error {
	if i == -1 || r.activating[i] || !r.isInState(i, engine.ScopeActive) {
		return nil
	}

	node := r.tree.nodes[i]
	if !node.element.AutoComplete {
		return nil
	}

	for _, child := range r.tree.children(i) {
		switch r.tree.nodes[child].entity.State {
		case engine.ScopeNew, engine.ScopeEnabled, engine.ScopeActive, engine.ScopeSuspended:
			return nil
		}
	}

	return r.complete(i)
}
