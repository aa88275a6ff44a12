package internal

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
)

var (
	executionListenerType = reflect.TypeOf((*engine.CaseExecutionListener)(nil)).Elem()
	variableListenerType  = reflect.TypeOf((*engine.CaseVariableListener)(nil)).Elem()
)

const (
	scriptFormatFeel       = "feel"
	scriptFormatJavaScript = "javascript"
)

// interfaceName returns the fully qualified name of a listener interface.
func interfaceName(t reflect.Type) string {
	return t.PkgPath() + "." + t.Name()
}

// resolveListener resolves the implementation of a custom listener, which must implement listenerType.
//
// Class and delegate expression listeners are resolved freshly for each notification. Expression and script
// listeners are wrapped. bindings are provided to delegate expressions, in addition to beans and variables.
func (r *caseRuntime) resolveListener(i int, l *model.Listener, listenerType reflect.Type, bindings map[string]any) (any, error) {
	switch {
	case l.Class != "":
		instance, err := r.instantiate(l.Class)
		if err != nil {
			return nil, err
		}
		if !reflect.TypeOf(instance).Implements(listenerType) {
			return nil, engine.Error{
				Type:   engine.ErrorConfiguration,
				Title:  "failed to resolve listener",
				Detail: fmt.Sprintf("class %s does not implement interface %s", l.Class, interfaceName(listenerType)),
			}
		}
		return r.injectFields(i, instance, l.Class, l.Fields, false)
	case l.DelegateExpression != "":
		variables := r.tree.variables(i, false)

		result, err := r.ctx.Services().Js.EvaluateExpression(
			model.ExpressionBody(l.DelegateExpression),
			r.expressionBindings(variables, bindings),
		)
		if err != nil {
			if engineErr, ok := asEngineError(err); ok {
				return nil, engineErr
			}
			return nil, engine.Error{
				Type:   engine.ErrorExpressionResolution,
				Title:  "failed to resolve listener",
				Detail: fmt.Sprintf("failed to evaluate delegate expression %s: %v", l.DelegateExpression, err),
			}
		}
		if result == nil || !reflect.TypeOf(result).Implements(listenerType) {
			return nil, engine.Error{
				Type:  engine.ErrorExpressionResolution,
				Title: "failed to resolve listener",
				Detail: fmt.Sprintf(
					"delegate expression %s did not resolve to an implementation of interface %s, but %T",
					l.DelegateExpression,
					interfaceName(listenerType),
					result,
				),
			}
		}
		// fields are injected into a copy of the bean
		return r.injectFields(i, result, l.DelegateExpression, l.Fields, true)
	case l.Expression != "":
		return r.newScriptListener(listenerType, scriptFormatJavaScript, model.ExpressionBody(l.Expression), l.Expression), nil
	case l.Script != nil:
		source := l.Script.Source
		if l.Script.Resource != "" {
			resource, ok := r.tree.definition.Scripts[l.Script.Resource]
			if !ok {
				return nil, engine.Error{
					Type:   engine.ErrorConfiguration,
					Title:  "failed to resolve listener",
					Detail: fmt.Sprintf("script resource %s could not be found", l.Script.Resource),
				}
			}
			source = resource
		}
		return r.newScriptListener(listenerType, l.Script.Format, source, ""), nil
	default:
		return nil, engine.Error{
			Type:   engine.ErrorBug,
			Title:  "failed to resolve listener",
			Detail: "listener has no implementation",
		}
	}
}

// instantiate creates a new instance of a class, using its registered factory.
func (r *caseRuntime) instantiate(class string) (instance any, err error) {
	factory, ok := r.ctx.Options().Classes[class]
	if !ok {
		return nil, engine.Error{
			Type:   engine.ErrorInstantiation,
			Title:  "failed to resolve listener",
			Detail: fmt.Sprintf("class %s could not be found", class),
		}
	}

	defer func() {
		if p := recover(); p != nil {
			instance = nil
			err = engine.Error{
				Type:   engine.ErrorInstantiation,
				Title:  "failed to resolve listener",
				Detail: fmt.Sprintf("failed to instantiate class %s: %v", class, p),
			}
		}
	}()

	instance, err = factory()
	if err != nil {
		return nil, engine.Error{
			Type:   engine.ErrorInstantiation,
			Title:  "failed to resolve listener",
			Detail: fmt.Sprintf("failed to instantiate class %s: %v", class, err),
		}
	}
	if instance == nil {
		return nil, engine.Error{
			Type:   engine.ErrorInstantiation,
			Title:  "failed to resolve listener",
			Detail: fmt.Sprintf("factory of class %s returned nil", class),
		}
	}

	return instance, nil
}

// injectFields sets the exported struct fields of a listener instance and returns the instance.
// If copyInstance is true, the fields are set on a shallow copy of the instance, which is returned instead.
// A field expression is evaluated as FEEL expression against the variables, visible from the scope.
func (r *caseRuntime) injectFields(i int, instance any, listenerName string, fields []*model.Field, copyInstance bool) (any, error) {
	if len(fields) == 0 {
		return instance, nil
	}

	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, engine.Error{
			Type:   engine.ErrorConfiguration,
			Title:  "failed to inject fields",
			Detail: fmt.Sprintf("listener %s must be a pointer to a struct, but is %T", listenerName, instance),
		}
	}

	if copyInstance {
		c := reflect.New(v.Elem().Type())
		c.Elem().Set(v.Elem())
		v = c
	}

	s := v.Elem()
	for _, field := range fields {
		var value any = field.StringValue
		if field.Expression != "" {
			result, err := r.ctx.Services().Feel.Evaluate(model.ExpressionBody(field.Expression), r.tree.variables(i, false))
			if err != nil {
				return nil, engine.Error{
					Type:   engine.ErrorExpressionResolution,
					Title:  "failed to inject fields",
					Detail: fmt.Sprintf("failed to evaluate expression of field %s: %v", field.Name, err),
				}
			}
			value = result
		}

		f := s.FieldByName(field.Name)
		if !f.IsValid() || !f.CanSet() {
			return nil, engine.Error{
				Type:   engine.ErrorConfiguration,
				Title:  "failed to inject fields",
				Detail: fmt.Sprintf("listener %s has no exported field %s", listenerName, field.Name),
			}
		}

		if err := assignField(f, value); err != nil {
			return nil, engine.Error{
				Type:   engine.ErrorConfiguration,
				Title:  "failed to inject fields",
				Detail: fmt.Sprintf("failed to inject field %s into listener %s: %v", field.Name, listenerName, err),
			}
		}
	}

	return v.Interface(), nil
}

func assignField(f reflect.Value, value any) error {
	if value == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(f.Type()):
		f.Set(v)
	case f.Kind() == reflect.String || v.Kind() == reflect.String:
		return fmt.Errorf("value of type %T is not assignable to %s", value, f.Type())
	case isNumber(v.Kind()) && isNumber(f.Kind()):
		f.Set(v.Convert(f.Type()))
	default:
		return fmt.Errorf("value of type %T is not assignable to %s", value, f.Type())
	}
	return nil
}

func isNumber(kind reflect.Kind) bool {
	return kind >= reflect.Int && kind <= reflect.Float64
}

// expressionBindings merges beans, variables and specific bindings. Variables shadow beans.
func (r *caseRuntime) expressionBindings(variables map[string]any, bindings map[string]any) map[string]any {
	beans := r.ctx.Options().Beans

	merged := make(map[string]any, len(beans)+len(variables)+len(bindings))
	for name, bean := range beans {
		merged[name] = bean
	}
	for name, value := range variables {
		merged[name] = value
	}
	for name, value := range bindings {
		merged[name] = value
	}
	return merged
}

// newScriptListener wraps a script or, if expression is not empty, a plain expression.
func (r *caseRuntime) newScriptListener(listenerType reflect.Type, format string, source string, expression string) any {
	l := scriptListener{
		r:          r,
		format:     format,
		source:     source,
		expression: expression,
	}
	if listenerType == variableListenerType {
		return variableScript{l}
	}
	return executionScript{l}
}

// scriptListener evaluates a script or an expression, when it is notified.
//
// A JavaScript script can access the execution via caseExecution, beans and all visible variables. The result of
// a plain expression must be nil or a listener, which is notified. The result of a FEEL script, which is a context,
// is set as variables.
type scriptListener struct {
	r          *caseRuntime
	format     string
	source     string
	expression string
}

func (l scriptListener) isExpression() bool {
	return l.expression != ""
}

func (l scriptListener) notAListener(listenerType reflect.Type, result any) error {
	return engine.Error{
		Type:  engine.ErrorExpressionResolution,
		Title: "failed to resolve listener",
		Detail: fmt.Sprintf(
			"expression %s did not resolve to an implementation of interface %s, but %T",
			l.expression,
			interfaceName(listenerType),
			result,
		),
	}
}

func (l scriptListener) evaluate(execution engine.DelegateCaseExecution, bindings map[string]any) (any, error) {
	services := l.r.ctx.Services()
	variables := execution.Variables()

	switch l.format {
	case scriptFormatFeel:
		result, err := services.Feel.Evaluate(l.source, variables)
		if err != nil {
			return nil, err
		}

		if values, ok := result.(map[string]any); ok {
			names := make([]string, 0, len(values))
			for name := range values {
				names = append(names, name)
			}
			slices.Sort(names)

			for _, name := range names {
				if err := execution.SetVariable(name, values[name]); err != nil {
					return nil, err
				}
			}
		}
		return result, nil
	case scriptFormatJavaScript, "js":
		if l.isExpression() {
			return services.Js.EvaluateExpression(l.source, l.r.expressionBindings(variables, bindings))
		}
		return services.Js.Evaluate(l.source, l.r.expressionBindings(variables, bindings))
	default:
		return nil, engine.Error{
			Type:   engine.ErrorConfiguration,
			Title:  "failed to evaluate script",
			Detail: fmt.Sprintf("script format %s is not supported", l.format),
		}
	}
}

type executionScript struct {
	scriptListener
}

func (l executionScript) Notify(ctx context.Context, execution engine.DelegateCaseExecution) error {
	result, err := l.evaluate(execution, map[string]any{"caseExecution": execution})
	if err != nil {
		return err
	}

	if !l.isExpression() || result == nil {
		return nil
	}

	listener, ok := result.(engine.CaseExecutionListener)
	if !ok {
		return l.notAListener(executionListenerType, result)
	}
	return listener.Notify(ctx, execution)
}

type variableScript struct {
	scriptListener
}

func (l variableScript) Notify(ctx context.Context, variable engine.DelegateCaseVariableInstance) error {
	execution := variable.SourceExecution()

	result, err := l.evaluate(execution, map[string]any{
		"caseExecution":        execution,
		"caseVariableInstance": variable,
	})
	if err != nil {
		return err
	}

	if !l.isExpression() || result == nil {
		return nil
	}

	listener, ok := result.(engine.CaseVariableListener)
	if !ok {
		return l.notAListener(variableListenerType, result)
	}
	return listener.Notify(ctx, variable)
}
