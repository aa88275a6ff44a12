package test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var (
		mutex       sync.Mutex
		failureJobs []engine.Job
	)

	engines, engineTypes := mustCreateEngines(t, func(o *engine.Options) {
		o.OnJobExecutionFailure = func(job engine.Job, _ error) {
			mutex.Lock()
			defer mutex.Unlock()
			failureJobs = append(failureJobs, job)
		}
	})
	for _, e := range engines {
		defer e.Shutdown()
	}

	for i, e := range engines {
		// given
		definition := mustDeploy(t, e, "", "one-task.yaml").Definitions[0]

		t.Run(engineTypes[i]+"set variables", func(t *testing.T) {
			// given
			ciAssert1 := mustCreateCaseInstance(t, e, definition, nil)
			ciAssert2 := mustCreateCaseInstance(t, e, definition, map[string]any{"x": "y"})

			// when
			batch, err := e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type: engine.BatchSetVariables,
				CaseInstanceIds: []int64{
					ciAssert1.CaseInstance().Id,
					ciAssert2.CaseInstance().Id,
				},
				Variables: map[string]any{"x": 1},
				WorkerId:  testWorkerId,
			})
			require.NoError(err)

			// then
			assert.Equal(engine.BatchSetVariables, batch.Type)
			assert.Equal(2, batch.TotalJobs)
			assert.False(batch.IsCompleted())
			assert.Equal(testWorkerId, batch.CreatedBy)

			jobs, err := e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{BatchId: batch.Id})
			require.NoError(err)
			require.Len(jobs, 2)
			assert.Equal(ciAssert1.CaseInstance().Id, jobs[0].CaseInstanceId)
			assert.Equal(ciAssert2.CaseInstance().Id, jobs[1].CaseInstanceId)
			assert.Equal(2, jobs[0].RetriesLeft)

			// when
			completedJobs, failedJobs, err := e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{
				BatchId:  batch.Id,
				Limit:    10,
				WorkerId: testWorkerId,
			})
			require.NoError(err)

			// then
			assert.Len(completedJobs, 2)
			assert.Empty(failedJobs)
			for _, job := range completedJobs {
				assert.True(job.IsCompleted())
				assert.False(job.HasError())
			}

			ciAssert1.HasVariable("x", int64(1))
			ciAssert2.HasVariable("x", int64(1))

			batches, err := e.CreateQuery().QueryBatches(context.Background(), engine.BatchCriteria{Id: batch.Id})
			require.NoError(err)
			require.Len(batches, 1)
			assert.True(batches[0].IsCompleted())

			entries, err := e.CreateQuery().QueryOperationLog(context.Background(), engine.OperationLogCriteria{
				CaseInstanceId: ciAssert1.CaseInstance().Id,
				Operation:      "EXECUTE_JOB",
			})
			require.NoError(err)
			assert.Len(entries, 1)
		})

		t.Run(engineTypes[i]+"suspend and terminate", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			caseInstanceIds := []int64{ciAssert.CaseInstance().Id}

			// when
			batch, err := e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type:            engine.BatchSuspend,
				CaseInstanceIds: caseInstanceIds,
				WorkerId:        testWorkerId,
			})
			require.NoError(err)

			_, _, err = e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{BatchId: batch.Id, Limit: 1, WorkerId: testWorkerId})
			require.NoError(err)

			// then
			ciAssert.HasState(engine.ScopeSuspended)
			ciAssert.HasScope("humanTask", engine.ScopeSuspended)

			// when
			batch, err = e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type:            engine.BatchTerminate,
				CaseInstanceIds: caseInstanceIds,
				WorkerId:        testWorkerId,
			})
			require.NoError(err)

			_, _, err = e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{BatchId: batch.Id, Limit: 1, WorkerId: testWorkerId})
			require.NoError(err)

			// then
			ciAssert.IsTerminated()
		})

		t.Run(engineTypes[i]+"retries failed job", func(t *testing.T) {
			// given
			mutex.Lock()
			failureJobs = nil
			mutex.Unlock()

			ciAssert := mustCreateCaseInstance(t, e, definition, nil)

			batch, err := e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type:            engine.BatchResume,
				CaseInstanceIds: []int64{ciAssert.CaseInstance().Id},
				WorkerId:        testWorkerId,
			})
			require.NoError(err)

			for retriesLeft := 2; retriesLeft >= 0; retriesLeft-- {
				// when
				completedJobs, failedJobs, err := e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{
					BatchId:  batch.Id,
					Limit:    10,
					WorkerId: testWorkerId,
				})
				require.NoError(err)

				// then
				assert.Empty(completedJobs)
				require.Len(failedJobs, 1)
				assert.True(failedJobs[0].IsCompleted())
				assert.NotEmpty(failedJobs[0].Error)
				assert.Equal(retriesLeft, failedJobs[0].RetriesLeft)
				assert.Equal(retriesLeft == 0, failedJobs[0].IsFailed())
			}

			mutex.Lock()
			assert.Len(failureJobs, 3)
			mutex.Unlock()

			ciAssert.IsActive()

			jobs, err := e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{BatchId: batch.Id})
			require.NoError(err)
			assert.Len(jobs, 3)

			jobs, err = e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{BatchId: batch.Id, Failed: true})
			require.NoError(err)
			require.Len(jobs, 1)
			assert.Equal(0, jobs[0].RetriesLeft)

			batches, err := e.CreateQuery().QueryBatches(context.Background(), engine.BatchCriteria{Id: batch.Id})
			require.NoError(err)
			require.Len(batches, 1)
			assert.True(batches[0].IsCompleted())

			statistics, err := e.CreateQuery().QueryDefinitionStatistics(context.Background(), engine.DefinitionStatisticsCriteria{
				Key: "oneTaskCase",
			})
			require.NoError(err)
			require.Len(statistics, 1)
			assert.Equal(1, statistics[0].FailedJobs)
		})

		t.Run(engineTypes[i]+"execute job returns error", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)

			batch, err := e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type:            engine.BatchSuspend,
				CaseInstanceIds: []int64{ciAssert.CaseInstance().Id},
				WorkerId:        testWorkerId,
			})
			require.NoError(err)

			jobs, err := e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{BatchId: batch.Id})
			require.NoError(err)
			require.Len(jobs, 1)

			job, err := e.ExecuteJob(context.Background(), engine.ExecuteJobCmd{Id: jobs[0].Id, WorkerId: testWorkerId})
			require.NoError(err)
			assert.True(job.IsCompleted())

			// when
			_, err = e.ExecuteJob(context.Background(), engine.ExecuteJobCmd{Id: jobs[0].Id, WorkerId: testWorkerId})

			// then
			assertEngineError(t, err, engine.ErrorConflict)

			// when
			_, err = e.ExecuteJob(context.Background(), engine.ExecuteJobCmd{Id: -1, WorkerId: testWorkerId})

			// then
			assertEngineError(t, err, engine.ErrorNotFound)
		})

		t.Run(engineTypes[i]+"create batch returns error", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)
			humanTask := ciAssert.Scope("humanTask")

			// when
			_, err := e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type:            engine.BatchSuspend,
				CaseInstanceIds: []int64{humanTask.Id},
				WorkerId:        testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorNotFound)

			// when
			_, err = e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type:            engine.BatchSetVariables,
				CaseInstanceIds: []int64{ciAssert.CaseInstance().Id},
				WorkerId:        testWorkerId,
			})

			// then
			engineErr := assertEngineError(t, err, engine.ErrorValidation)
			require.Len(engineErr.Causes, 1)
			assert.Equal("/variables", engineErr.Causes[0].Pointer)

			// when
			_, err = e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type:            engine.BatchSuspend,
				CaseInstanceIds: []int64{ciAssert.CaseInstance().Id},
				Schedule:        "invalid",
				WorkerId:        testWorkerId,
			})

			// then
			assertEngineError(t, err, engine.ErrorValidation)
		})
	}
}

func TestBatchSchedule(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	engines, engineTypes := mustCreateEngines(t)
	for _, e := range engines {
		defer e.Shutdown()
	}

	for i, e := range engines {
		// given
		definition := mustDeploy(t, e, "", "one-task.yaml").Definitions[0]

		t.Run(engineTypes[i]+"jobs are due at next tick", func(t *testing.T) {
			// given
			ciAssert := mustCreateCaseInstance(t, e, definition, nil)

			batch, err := e.CreateBatch(context.Background(), engine.CreateBatchCmd{
				Type:            engine.BatchTerminate,
				CaseInstanceIds: []int64{ciAssert.CaseInstance().Id},
				Schedule:        "0 0 * * *",
				WorkerId:        testWorkerId,
			})
			require.NoError(err)

			jobs, err := e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{BatchId: batch.Id})
			require.NoError(err)
			require.Len(jobs, 1)

			dueAt := jobs[0].DueAt
			assert.Equal(0, dueAt.Hour())
			assert.Equal(0, dueAt.Minute())
			assert.True(dueAt.After(jobs[0].CreatedAt))

			// when
			completedJobs, _, err := e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{
				BatchId:  batch.Id,
				Limit:    10,
				WorkerId: testWorkerId,
			})
			require.NoError(err)

			// then
			assert.Empty(completedJobs)
			ciAssert.IsActive()

			// when
			require.NoError(e.SetTime(context.Background(), engine.SetTimeCmd{Time: dueAt}))

			completedJobs, _, err = e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{
				BatchId:  batch.Id,
				Limit:    10,
				WorkerId: testWorkerId,
			})
			require.NoError(err)

			// then
			assert.Len(completedJobs, 1)
			ciAssert.IsTerminated()
		})

		t.Run(engineTypes[i]+"set time returns error when time is in the past", func(t *testing.T) {
			// when
			err := e.SetTime(context.Background(), engine.SetTimeCmd{Time: time.Now().Add(-time.Hour)})

			// then
			assertEngineError(t, err, engine.ErrorConflict)
		})
	}
}
