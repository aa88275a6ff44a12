package internal

import (
	"context"
	"testing"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testJobExecutorEngine struct {
	engine.Engine

	executeJobsCalled int
}

func (e *testJobExecutorEngine) ExecuteJobs(ctx context.Context, cmd engine.ExecuteJobsCmd) ([]engine.Job, []engine.Job, error) {
	e.executeJobsCalled++
	return nil, []engine.Job{{Id: 1, Error: "test error"}}, nil
}

func TestJobExecutor(t *testing.T) {
	assert := assert.New(t)

	// given
	e := &testJobExecutorEngine{}

	options := engine.NewOptions()
	options.JobExecutorInterval = time.Millisecond * 100
	options.Logger = zap.NewNop()

	executor := NewJobExecutor(e, options)

	// when
	executor.Execute()
	time.Sleep(time.Millisecond * 350)
	executor.Stop()

	// then
	assert.Equal(3, e.executeJobsCalled)
}

type blockingJobExecutorEngine struct {
	engine.Engine

	executeJobsStarted  int
	executeJobsFinished int
}

func (e *blockingJobExecutorEngine) ExecuteJobs(ctx context.Context, cmd engine.ExecuteJobsCmd) ([]engine.Job, []engine.Job, error) {
	e.executeJobsStarted++
	time.Sleep(time.Millisecond * 200)
	e.executeJobsFinished++
	return nil, nil, nil
}

func TestJobExecutorStop(t *testing.T) {
	assert := assert.New(t)

	t.Run("waits for execution in progress", func(t *testing.T) {
		// given
		e := &blockingJobExecutorEngine{}

		options := engine.NewOptions()
		options.JobExecutorInterval = time.Millisecond * 50
		options.Logger = zap.NewNop()

		executor := NewJobExecutor(e, options)
		executor.Execute()

		time.Sleep(time.Millisecond * 100)

		// when
		executor.Stop()

		// then
		assert.Equal(1, e.executeJobsStarted)
		assert.Equal(1, e.executeJobsFinished)
	})

	t.Run("not executed", func(t *testing.T) {
		// given
		executor := NewJobExecutor(&blockingJobExecutorEngine{}, engine.NewOptions())

		// when
		executor.Stop()
	})
}
