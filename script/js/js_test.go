package js

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testBean struct {
	Value string

	calls int
}

func (b *testBean) Call(s string) string {
	b.calls++
	return b.Value + s
}

func (b *testBean) Fail() error {
	return errTest
}

var errTest = errors.New("test error")

func mustCreateEvaluator(t *testing.T) *Evaluator {
	e, err := New(2)
	if err != nil {
		t.Fatalf("failed to create evaluator: %v", err)
	}
	return e
}

func TestEvaluate(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEvaluator(t)

	t.Run("value", func(t *testing.T) {
		result, err := e.Evaluate("1 + 2", nil)
		assert.Nil(err)
		assert.Equal(int64(3), result)
	})

	t.Run("undefined", func(t *testing.T) {
		result, err := e.Evaluate("var x = 1;", nil)
		assert.Nil(err)
		assert.Nil(result)
	})

	t.Run("bindings", func(t *testing.T) {
		bean := &testBean{Value: "a"}

		result, err := e.Evaluate(`bean.call("b") + name`, map[string]any{"bean": bean, "name": "c"})
		assert.Nil(err)
		assert.Equal("abc", result)
		assert.Equal(1, bean.calls)
	})

	t.Run("bindings are not shared", func(t *testing.T) {
		_, err := e.Evaluate("let y = 1; y", nil)
		assert.Nil(err)

		_, err = e.Evaluate("let y = 1; y", nil)
		assert.Nil(err)

		_, err = e.Evaluate("name", nil)
		assert.NotNil(err)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := e.Evaluate("(", nil)
		assert.NotNil(err)
		assert.Contains(err.Error(), "failed to compile script")
	})

	t.Run("go error is unwrapped", func(t *testing.T) {
		_, err := e.Evaluate("bean.fail()", map[string]any{"bean": &testBean{}})
		assert.NotNil(err)
		assert.True(errors.Is(err, errTest))
	})

	t.Run("program cache", func(t *testing.T) {
		e := mustCreateEvaluator(t)

		_, _ = e.Evaluate("1", nil)
		_, _ = e.Evaluate("1", nil)
		assert.Equal(1, e.Len())

		_, _ = e.Evaluate("2", nil)
		_, _ = e.Evaluate("3", nil)
		assert.Equal(2, e.Len())
	})
}

func TestEvaluateExpression(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEvaluator(t)

	bean := &testBean{}

	result, err := e.EvaluateExpression("bean", map[string]any{"bean": bean})
	assert.Nil(err)
	assert.Same(bean, result)

	result, err = e.EvaluateExpression("{a: 1}", nil)
	assert.Nil(err)
	assert.Equal(map[string]any{"a": int64(1)}, result)
}
