package pg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func New(databaseUrl string, customizers ...func(*Options)) (engine.Engine, error) {
	if databaseUrl == "" {
		return nil, errors.New("database URL is empty")
	}

	options := NewOptions()
	for _, customizer := range customizers {
		customizer(&options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	pgPoolConfig, err := pgxpool.ParseConfig(databaseUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %v", err)
	}

	if _, ok := pgPoolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		pgPoolConfig.ConnConfig.RuntimeParams["application_name"] = options.Common.EngineId
	}

	if databaseSchema, ok := pgPoolConfig.ConnConfig.RuntimeParams["search_path"]; ok {
		options.databaseSchema = databaseSchema
	}

	services, err := internal.NewServices(options.Common)
	if err != nil {
		return nil, err
	}

	pgPoolCtx, pgPoolCancel := context.WithTimeout(context.Background(), options.Timeout)
	defer pgPoolCancel()

	pgPool, err := pgxpool.NewWithConfig(pgPoolCtx, pgPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %v", err)
	}

	pgCtxPoolSize := int(pgPoolConfig.MaxConns)
	pgCtxPool := make(chan *pgContext, pgCtxPoolSize)

	for i := 0; i < pgCtxPoolSize; i++ {
		pgCtxPool <- &pgContext{options: options, services: services}
	}

	acquireCtx, acquireCancel := context.WithCancel(context.Background())

	pgEngine := pgEngine{
		acquireCtx:    acquireCtx,
		acquireCancel: acquireCancel,

		options:   options,
		pgCtxPool: pgCtxPool,
		pgPool:    pgPool,
		services:  services,
		txTimeout: options.Timeout,

		defaultQueryLimit: options.Common.DefaultQueryLimit,
	}

	if err := pgEngine.migrateDatabase(); err != nil {
		pgEngine.Shutdown()
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	if options.Common.JobExecutorEnabled {
		pgEngine.jobExecutor = internal.NewJobExecutor(&pgEngine, options.Common)
		pgEngine.jobExecutor.Execute()
	}

	return &pgEngine, nil
}

func NewOptions() Options {
	common := engine.NewOptions()
	common.JobExecutorEnabled = true

	return Options{
		Common: common,

		Timeout: 30 * time.Second,

		databaseSchema: "public",
	}
}

type Options struct {
	Common engine.Options // Common engine options.

	Timeout time.Duration // Time limit for database transactions, utilized when the context of a call has no deadline.

	databaseSchema string // derived from database URL - see runtime parameter "search_path"
}

func (o Options) Validate() error {
	if o.Timeout.Milliseconds() < 1 {
		return errors.New("timeout must be greater than or equal to 1 ms")
	}
	return o.Common.Validate()
}

type pgEngine struct {
	acquireCtx    context.Context    // used to prevent the acquisition of a context, when the engine is shut down
	acquireCancel context.CancelFunc // invoked when a shutdown is initiated
	shutdownOnce  sync.Once          // used to prevent more than one shutdown

	options   Options
	pgCtxPool chan *pgContext
	pgPool    *pgxpool.Pool
	services  *internal.Services
	txTimeout time.Duration // utilized when the context of a call has no deadline

	defaultQueryLimit int

	jobExecutor *internal.JobExecutor

	setTimeMutex sync.Mutex    // used to call SetTime exclusively
	offset       time.Duration // engine time offset
}

// acquire takes a context from the pool and begins a transaction.
// The returned cancel function must be called, after the context is released.
func (e *pgEngine) acquire(ctx context.Context) (*pgContext, context.CancelFunc, error) {
	now := time.Now()

	if ctx == nil {
		ctx = context.Background()
	}

	txCtx, cancel := ctx, context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok {
		txCtx, cancel = context.WithTimeout(ctx, e.txTimeout)
	}

	select {
	case <-e.acquireCtx.Done():
		cancel()
		return nil, nil, e.acquireCtx.Err()
	case <-txCtx.Done():
		cancel()
		return nil, nil, txCtx.Err()
	case pgCtx := <-e.pgCtxPool:
		tx, err := e.pgPool.Begin(txCtx)
		if err != nil {
			e.pgCtxPool <- pgCtx
			cancel()
			return nil, nil, err
		}

		// must be UTC and truncated to millis, since TIMESTAMP(3) is used
		// otherwise tests are flaky
		pgCtx.time = now.UTC().Add(e.offset).Truncate(time.Millisecond)

		pgCtx.ctx = ctx
		pgCtx.tx = tx
		pgCtx.txCtx = txCtx

		return pgCtx, cancel, nil
	}
}

// release commits the transaction, if err is nil. Otherwise the transaction is rolled back.
func (e *pgEngine) release(pgCtx *pgContext, err error) error {
	if err != nil {
		_ = pgCtx.tx.Rollback(pgCtx.txCtx)
	} else {
		err = pgCtx.tx.Commit(pgCtx.txCtx)
	}

	pgCtx.ctx = nil
	pgCtx.tx = nil
	pgCtx.txCtx = nil

	e.pgCtxPool <- pgCtx
	return err
}

func (e *pgEngine) migrateDatabase() error {
	pgCtx, cancel, err := e.acquire(context.Background())
	if err != nil {
		return err
	}

	defer cancel()
	return e.release(pgCtx, migrateDatabase(pgCtx))
}

func (e *pgEngine) CreateBatch(ctx context.Context, cmd engine.CreateBatchCmd) (engine.Batch, error) {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return engine.Batch{}, err
	}

	defer cancel()
	batch, err := internal.CreateBatch(pgCtx, cmd)
	return batch, e.services.CommandExecuted("CreateBatch", e.release(pgCtx, err))
}

func (e *pgEngine) CreateCaseInstance(ctx context.Context, cmd engine.CreateCaseInstanceCmd) (engine.Scope, error) {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return engine.Scope{}, err
	}

	defer cancel()
	caseInstance, err := internal.CreateCaseInstance(pgCtx, cmd)
	return caseInstance, e.services.CommandExecuted("CreateCaseInstance", e.release(pgCtx, err))
}

func (e *pgEngine) CreateChildScope(ctx context.Context, cmd engine.CreateChildScopeCmd) (engine.Scope, error) {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return engine.Scope{}, err
	}

	defer cancel()
	scope, err := internal.CreateChildScope(pgCtx, cmd)
	return scope, e.services.CommandExecuted("CreateChildScope", e.release(pgCtx, err))
}

func (e *pgEngine) CreateDeployment(ctx context.Context, cmd engine.CreateDeploymentCmd) (engine.Deployment, error) {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return engine.Deployment{}, err
	}

	defer cancel()
	deployment, err := internal.CreateDeployment(pgCtx, cmd)
	return deployment, e.services.CommandExecuted("CreateDeployment", e.release(pgCtx, err))
}

func (e *pgEngine) CreateQuery() engine.Query {
	return &query{
		e: e,

		defaultQueryLimit: e.defaultQueryLimit,
		options:           engine.QueryOptions{Limit: e.defaultQueryLimit},
	}
}

func (e *pgEngine) ExecuteJob(ctx context.Context, cmd engine.ExecuteJobCmd) (engine.Job, error) {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return engine.Job{}, err
	}

	defer cancel()
	job, err := internal.ExecuteJob(pgCtx, cmd)
	return job, e.services.CommandExecuted("ExecuteJob", e.release(pgCtx, err))
}

func (e *pgEngine) ExecuteJobs(ctx context.Context, cmd engine.ExecuteJobsCmd) ([]engine.Job, []engine.Job, error) {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	dueJobs, err := internal.SelectDueJobs(pgCtx, cmd)
	err = e.release(pgCtx, err)
	cancel()

	if err != nil {
		return nil, nil, err
	}

	var (
		completedJobs []engine.Job
		failedJobs    []engine.Job

		errs []error
	)
	for _, dueJob := range dueJobs {
		job, err := e.ExecuteJob(ctx, engine.ExecuteJobCmd{Id: dueJob.Id, WorkerId: cmd.WorkerId})

		if err != nil {
			job = dueJob.Job()
			errs = append(errs, fmt.Errorf("failed to execute job %s: %v", job, err))
		} else if job.HasError() {
			err = errors.New(job.Error)
		}

		if err != nil {
			if onFailure := e.options.Common.OnJobExecutionFailure; onFailure != nil {
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

func (e *pgEngine) GetVariables(ctx context.Context, cmd engine.GetVariablesCmd) (map[string]any, error) {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer cancel()
	variables, err := internal.GetVariables(pgCtx, cmd)
	return variables, e.services.CommandExecuted("GetVariables", e.release(pgCtx, err))
}

func (e *pgEngine) RemoveVariables(ctx context.Context, cmd engine.RemoveVariablesCmd) error {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return err
	}

	defer cancel()
	err = internal.RemoveVariables(pgCtx, cmd)
	return e.services.CommandExecuted("RemoveVariables", e.release(pgCtx, err))
}

func (e *pgEngine) SetTime(ctx context.Context, cmd engine.SetTimeCmd) error {
	e.setTimeMutex.Lock()
	defer e.setTimeMutex.Unlock()

	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return err
	}

	defer cancel()

	old := pgCtx.Time()
	new := cmd.Time.UTC().Truncate(time.Millisecond)

	sub := new.Sub(old)
	if sub.Milliseconds() < 0 {
		return e.release(pgCtx, engine.Error{
			Type:  engine.ErrorConflict,
			Title: "failed to set time",
			Detail: fmt.Sprintf(
				"time %s is before engine time %s",
				new.Format(time.RFC3339),
				old.Format(time.RFC3339),
			),
		})
	}

	if err := e.release(pgCtx, nil); err != nil {
		return err
	}

	e.offset = e.offset + sub
	return nil
}

func (e *pgEngine) SetVariables(ctx context.Context, cmd engine.SetVariablesCmd) error {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return err
	}

	defer cancel()
	err = internal.SetVariables(pgCtx, cmd)
	return e.services.CommandExecuted("SetVariables", e.release(pgCtx, err))
}

func (e *pgEngine) TransitionScope(ctx context.Context, cmd engine.TransitionScopeCmd) (engine.Scope, error) {
	pgCtx, cancel, err := e.acquire(ctx)
	if err != nil {
		return engine.Scope{}, err
	}

	defer cancel()
	scope, err := internal.TransitionScope(pgCtx, cmd)
	return scope, e.services.CommandExecuted("TransitionScope", e.release(pgCtx, err))
}

func (e *pgEngine) Shutdown() {
	e.shutdownOnce.Do(func() {
		if e.jobExecutor != nil {
			e.jobExecutor.Stop()
		}

		e.services.Logger.Debug("shutting down pg engine", zap.String("engineId", e.options.Common.EngineId))

		e.acquireCancel()
		e.pgPool.Close()

		e.services.DefinitionCache.Clear()

		for len(e.pgCtxPool) > 0 {
			<-e.pgCtxPool
		}

		close(e.pgCtxPool)
	})
}
