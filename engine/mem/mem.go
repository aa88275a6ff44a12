package mem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"go.uber.org/zap"
)

func New(customizers ...func(*Options)) (engine.Engine, error) {
	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	services, err := internal.NewServices(options.Common)
	if err != nil {
		return nil, err
	}

	memEngine := memEngine{
		ctx:      newMemContext(options, services),
		services: services,

		defaultQueryLimit: options.Common.DefaultQueryLimit,
	}

	if options.Common.JobExecutorEnabled {
		memEngine.jobExecutor = internal.NewJobExecutor(&memEngine, options.Common)
		memEngine.jobExecutor.Execute()
	}

	return &memEngine, nil
}

func NewOptions() Options {
	return Options{
		Common: engine.NewOptions(),
	}
}

type Options struct {
	Common engine.Options // Common options
}

func (o Options) Validate() error {
	return o.Common.Validate()
}

type memEngine struct {
	ctxMutex sync.RWMutex
	ctx      *memContext
	services *internal.Services

	defaultQueryLimit int

	offset      time.Duration
	jobExecutor *internal.JobExecutor
}

func (e *memEngine) CreateBatch(ctx context.Context, cmd engine.CreateBatchCmd) (engine.Batch, error) {
	defer e.unlock()
	batch, err := internal.CreateBatch(e.wlock(ctx), cmd)
	return batch, e.services.CommandExecuted("CreateBatch", err)
}

func (e *memEngine) CreateCaseInstance(ctx context.Context, cmd engine.CreateCaseInstanceCmd) (engine.Scope, error) {
	defer e.unlock()
	caseInstance, err := internal.CreateCaseInstance(e.wlock(ctx), cmd)
	return caseInstance, e.services.CommandExecuted("CreateCaseInstance", err)
}

func (e *memEngine) CreateChildScope(ctx context.Context, cmd engine.CreateChildScopeCmd) (engine.Scope, error) {
	defer e.unlock()
	scope, err := internal.CreateChildScope(e.wlock(ctx), cmd)
	return scope, e.services.CommandExecuted("CreateChildScope", err)
}

func (e *memEngine) CreateDeployment(ctx context.Context, cmd engine.CreateDeploymentCmd) (engine.Deployment, error) {
	defer e.unlock()
	deployment, err := internal.CreateDeployment(e.wlock(ctx), cmd)
	return deployment, e.services.CommandExecuted("CreateDeployment", err)
}

func (e *memEngine) CreateQuery() engine.Query {
	return &query{
		e: e,

		defaultQueryLimit: e.defaultQueryLimit,
		options:           engine.QueryOptions{Limit: e.defaultQueryLimit},
	}
}

func (e *memEngine) ExecuteJob(ctx context.Context, cmd engine.ExecuteJobCmd) (engine.Job, error) {
	defer e.unlock()
	job, err := internal.ExecuteJob(e.wlock(ctx), cmd)
	return job, e.services.CommandExecuted("ExecuteJob", err)
}

func (e *memEngine) ExecuteJobs(ctx context.Context, cmd engine.ExecuteJobsCmd) ([]engine.Job, []engine.Job, error) {
	defer e.unlock()
	memCtx := e.wlock(ctx)

	dueJobs, err := internal.SelectDueJobs(memCtx, cmd)
	if err != nil {
		return nil, nil, err
	}

	var (
		completedJobs []engine.Job
		failedJobs    []engine.Job

		errs []error
	)
	for _, dueJob := range dueJobs {
		job, err := internal.ExecuteJob(memCtx, engine.ExecuteJobCmd{Id: dueJob.Id, WorkerId: cmd.WorkerId})
		err = e.services.CommandExecuted("ExecuteJob", err)

		if err != nil {
			job = dueJob.Job()
			errs = append(errs, fmt.Errorf("failed to execute job %s: %v", job, err))
		} else if job.HasError() {
			err = errors.New(job.Error)
		}

		if err != nil {
			if onFailure := memCtx.options.Common.OnJobExecutionFailure; onFailure != nil {
				onFailure(job, err)
			}
			failedJobs = append(failedJobs, job)
		} else {
			completedJobs = append(completedJobs, job)
		}
	}

	if len(errs) == 0 {
		return completedJobs, failedJobs, nil
	} else {
		return completedJobs, failedJobs, errors.Join(errs...)
	}
}

func (e *memEngine) GetVariables(ctx context.Context, cmd engine.GetVariablesCmd) (map[string]any, error) {
	defer e.runlock()
	variables, err := internal.GetVariables(e.rlock(ctx), cmd)
	return variables, e.services.CommandExecuted("GetVariables", err)
}

func (e *memEngine) RemoveVariables(ctx context.Context, cmd engine.RemoveVariablesCmd) error {
	defer e.unlock()
	return e.services.CommandExecuted("RemoveVariables", internal.RemoveVariables(e.wlock(ctx), cmd))
}

func (e *memEngine) SetTime(ctx context.Context, cmd engine.SetTimeCmd) error {
	defer e.unlock()
	memCtx := e.wlock(ctx)

	old := memCtx.Time()
	new := cmd.Time.UTC().Truncate(time.Millisecond)

	sub := new.Sub(old)
	if sub.Milliseconds() < 0 {
		return engine.Error{
			Type:  engine.ErrorConflict,
			Title: "failed to set time",
			Detail: fmt.Sprintf(
				"time %s is before engine time %s",
				new.Format(time.RFC3339),
				old.Format(time.RFC3339),
			),
		}
	}

	e.offset = e.offset + sub
	return nil
}

func (e *memEngine) SetVariables(ctx context.Context, cmd engine.SetVariablesCmd) error {
	defer e.unlock()
	return e.services.CommandExecuted("SetVariables", internal.SetVariables(e.wlock(ctx), cmd))
}

func (e *memEngine) TransitionScope(ctx context.Context, cmd engine.TransitionScopeCmd) (engine.Scope, error) {
	defer e.unlock()
	scope, err := internal.TransitionScope(e.wlock(ctx), cmd)
	return scope, e.services.CommandExecuted("TransitionScope", err)
}

func (e *memEngine) Shutdown() {
	if e.jobExecutor != nil {
		e.jobExecutor.Stop()
	}

	e.services.Logger.Debug("shutting down mem engine", zap.String("engineId", e.ctx.options.Common.EngineId))

	e.ctxMutex.Lock()
	defer e.ctxMutex.Unlock()
	e.ctx.clear()
}

// rlock acquires a read lock and returns a context, exclusively used by the caller.
func (e *memEngine) rlock(ctx context.Context) *memContext {
	now := time.Now()

	e.ctxMutex.RLock()

	return e.ctx.with(ctx, now.UTC().Add(e.offset))
}

func (e *memEngine) runlock() {
	e.ctxMutex.RUnlock()
}

// wlock acquires a write lock and returns a context, exclusively used by the caller.
func (e *memEngine) wlock(ctx context.Context) *memContext {
	now := time.Now()

	e.ctxMutex.Lock()

	return e.ctx.with(ctx, now.UTC().Add(e.offset))
}

func (e *memEngine) unlock() {
	e.ctxMutex.Unlock()
}
