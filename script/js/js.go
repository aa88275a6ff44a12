// Package js evaluates JavaScript scripts and expressions, using goja.
//
// Compiled programs are cached by source. Each evaluation runs in its own runtime, so that evaluations can be
// nested - e.g. when a script sets a variable, which notifies another script listener.
package js

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
	lru "github.com/hashicorp/golang-lru/v2"
)

func New(cacheSize int) (*Evaluator, error) {
	programs, err := lru.New[string, *goja.Program](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %v", err)
	}
	return &Evaluator{programs: programs}, nil
}

type Evaluator struct {
	programs *lru.Cache[string, *goja.Program]
}

// Evaluate runs a script and returns the exported value of its last statement.
//
// Bindings are set as global variables. Go values keep their identity: methods are callable with an
// uncapitalized name (e.g. caseExecution.setVariable) and an exported Go value is the value itself.
// An error, returned by a Go method called from the script, is returned unchanged or wrapped, so that it can be
// found via errors.As.
func (e *Evaluator) Evaluate(source string, bindings map[string]any) (any, error) {
	program, err := e.compile(source)
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %v", name, err)
		}
	}

	result, err := vm.RunProgram(program)
	if err != nil {
		return nil, unwrapError(err)
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

// EvaluateExpression evaluates the body of an expression like ${bean.value}.
func (e *Evaluator) EvaluateExpression(expression string, bindings map[string]any) (any, error) {
	return e.Evaluate("("+expression+")", bindings)
}

// Len returns the number of cached programs.
func (e *Evaluator) Len() int {
	return e.programs.Len()
}

func (e *Evaluator) compile(source string) (*goja.Program, error) {
	if program, ok := e.programs.Get(source); ok {
		return program, nil
	}

	program, err := goja.Compile("", source, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %v", err)
	}

	e.programs.Add(source, program)
	return program, nil
}

// unwrapError returns the Go error, a script has thrown by calling a failing Go method.
func unwrapError(err error) error {
	var exception *goja.Exception
	if !errors.As(err, &exception) {
		return fmt.Errorf("failed to evaluate script: %v", err)
	}

	if cause := exception.Unwrap(); cause != nil {
		return cause
	}

	if value := exception.Value(); value != nil {
		if cause, ok := value.Export().(error); ok {
			return cause
		}
	}

	return fmt.Errorf("failed to evaluate script: %v", exception.Error())
}
