package internal

import (
	"fmt"

	"github.com/gclaussn/go-cmmn/engine"
	"go.uber.org/zap"
)

// variableEvent is the creation, update or deletion of a variable.
type variableEvent struct {
	event  engine.EventName
	name   string
	value  any
	source int // Index of the scope, the write was requested on.
	owner  int // Index of the scope, which owns the variable.

	depth int
}

func newCaseRuntime(tree *caseTree) *caseRuntime {
	return &caseRuntime{
		ctx:        tree.ctx,
		tree:       tree,
		activating: make(map[int]bool),
	}
}

// caseRuntime performs the changes of a command on a case instance tree and notifies the listeners about the
// resulting execution and variable events.
//
// Listeners are notified synchronously. An execution listener runs to completion, including the notification of
// all variable listeners, its writes cause. Writes of variable listeners are queued and dispatched in order, after
// the listeners of the current variable event were notified.
type caseRuntime struct {
	ctx  Context
	tree *caseTree

	depth               int
	variableDispatching bool
	queue               []variableEvent

	activating map[int]bool // Scopes, whose children are being created.
}

// fire notifies the built-in and custom execution listeners of a scope about an event.
func (r *caseRuntime) fire(i int, event engine.EventName) error {
	r.depth++
	defer func() { r.depth-- }()

	if err := r.checkDepth(); err != nil {
		return err
	}

	variableDispatching, queue := r.variableDispatching, r.queue
	r.variableDispatching, r.queue = false, nil
	defer func() { r.variableDispatching, r.queue = variableDispatching, queue }()

	node := r.tree.nodes[i]
	options := r.ctx.Options()

	delegate := &delegateExecution{r: r, index: i, event: event}

	notifyBuiltin := func() error {
		for _, builtinListener := range options.BuiltinListeners {
			listener, ok := builtinListener.Listener.(engine.CaseExecutionListener)
			if !ok || !builtinListener.Matches(r.tree.definition.Entity.Key, node.entity.ActivityId, event) {
				continue
			}

			if err := r.invoke(i, event, "builtin", func() error {
				return listener.Notify(r.ctx.Context(), delegate)
			}); err != nil {
				return err
			}
		}
		return nil
	}

	notifyCustom := func() error {
		if !options.InvokeCustomListeners {
			return nil
		}

		for _, customListener := range node.element.ExecutionListeners(string(event)) {
			resolved, err := r.resolveListener(i, customListener, executionListenerType, map[string]any{
				"caseExecution": delegate,
			})
			if err != nil {
				return err
			}

			listener := resolved.(engine.CaseExecutionListener)
			if err := r.invoke(i, event, customListener.SourceKind(), func() error {
				return listener.Notify(r.ctx.Context(), delegate)
			}); err != nil {
				return err
			}
		}
		return nil
	}

	return r.notifyInOrder(notifyBuiltin, notifyCustom)
}

// variableChanged dispatches a variable event. While variable listeners are notified, the event is queued.
func (r *caseRuntime) variableChanged(evt variableEvent) error {
	evt.depth = r.depth + 1

	if r.variableDispatching {
		r.queue = append(r.queue, evt)
		return nil
	}

	r.variableDispatching = true
	r.queue = []variableEvent{evt}

	defer func() {
		r.variableDispatching = false
		r.queue = nil
	}()

	for len(r.queue) != 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]

		if err := r.notifyVariableListeners(next); err != nil {
			return err
		}
	}

	return nil
}

// notifyVariableListeners notifies the listeners of all scopes on the path from the source scope up to the owning
// scope, starting with the source scope.
func (r *caseRuntime) notifyVariableListeners(evt variableEvent) error {
	depth := r.depth
	r.depth = evt.depth
	defer func() { r.depth = depth }()

	if err := r.checkDepth(); err != nil {
		return err
	}

	options := r.ctx.Options()

	delegate := &delegateVariable{r: r, evt: evt}

	for i := evt.source; i != -1; i = r.tree.nodes[i].parent {
		node := r.tree.nodes[i]

		notifyBuiltin := func() error {
			for _, builtinListener := range options.BuiltinListeners {
				listener, ok := builtinListener.Listener.(engine.CaseVariableListener)
				if !ok || !builtinListener.Matches(r.tree.definition.Entity.Key, node.entity.ActivityId, evt.event) {
					continue
				}

				if err := r.invoke(i, evt.event, "builtin", func() error {
					return listener.Notify(r.ctx.Context(), delegate)
				}); err != nil {
					return err
				}
			}
			return nil
		}

		notifyCustom := func() error {
			if !options.InvokeCustomListeners {
				return nil
			}

			for _, customListener := range node.element.VariableListenersFor(string(evt.event)) {
				resolved, err := r.resolveListener(i, customListener, variableListenerType, map[string]any{
					"caseExecution":        delegate.SourceExecution(),
					"caseVariableInstance": delegate,
				})
				if err != nil {
					return err
				}

				listener := resolved.(engine.CaseVariableListener)
				if err := r.invoke(i, evt.event, customListener.SourceKind(), func() error {
					return listener.Notify(r.ctx.Context(), delegate)
				}); err != nil {
					return err
				}
			}
			return nil
		}

		if err := r.notifyInOrder(notifyBuiltin, notifyCustom); err != nil {
			return err
		}

		if i == evt.owner {
			break
		}
	}

	return nil
}

func (r *caseRuntime) notifyInOrder(notifyBuiltin func() error, notifyCustom func() error) error {
	first, second := notifyBuiltin, notifyCustom
	if !r.ctx.Options().BuiltinListenersFirst {
		first, second = notifyCustom, notifyBuiltin
	}

	if err := first(); err != nil {
		return err
	}
	return second()
}

// invoke notifies a listener. An [engine.Error] is returned unchanged, other errors are wrapped.
func (r *caseRuntime) invoke(i int, event engine.EventName, kind string, notify func() error) error {
	node := r.tree.nodes[i]
	services := r.ctx.Services()

	services.Logger.Debug("notifying listener",
		zap.Int64("scopeId", node.entity.Id),
		zap.String("activityId", node.entity.ActivityId),
		zap.String("event", string(event)),
		zap.String("kind", kind),
		zap.Int("depth", r.depth),
	)
	services.Metrics.listenerInvoked(kind, event)

	err := notify()
	if err == nil {
		return nil
	}

	services.Metrics.listenerFailed(kind)
	services.Logger.Debug("listener failed",
		zap.Int64("scopeId", node.entity.Id),
		zap.String("event", string(event)),
		zap.Error(err),
	)

	if engineErr, ok := asEngineError(err); ok {
		return engineErr
	}
	return fmt.Errorf("%s listener of scope %d/%s failed on event %s: %v", kind, node.entity.Id, node.entity.ActivityId, event, err)
}

func (r *caseRuntime) checkDepth() error {
	if maxDepth := r.ctx.Options().MaxDispatchDepth; r.depth > maxDepth {
		return engine.Error{
			Type:   engine.ErrorIllegalState,
			Title:  "failed to dispatch event",
			Detail: fmt.Sprintf("maximum dispatch depth of %d exceeded", maxDepth),
		}
	}
	return nil
}

// setVariable sets a variable on behalf of a scope and dispatches the resulting event.
func (r *caseRuntime) setVariable(i int, name string, value any, local bool) error {
	evt, err := r.tree.setVariable(i, name, value, local)
	if err != nil {
		return err
	}
	return r.variableChanged(evt)
}

// removeVariable removes a variable on behalf of a scope and dispatches the resulting event, if any.
func (r *caseRuntime) removeVariable(i int, name string, local bool) error {
	evt, ok, err := r.tree.removeVariable(i, name, local)
	if err != nil || !ok {
		return err
	}
	return r.variableChanged(evt)
}
