package internal

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

type JobEntity struct {
	Id int64

	BatchId        int64
	CaseInstanceId int64
	DefinitionId   int64

	CompletedAt pgtype.Timestamp
	CreatedAt   time.Time
	CreatedBy   string
	DueAt       time.Time
	Error       pgtype.Text
	RetriesLeft int
	TenantId    pgtype.Text
	Type        engine.BatchType
}

func (e JobEntity) Job() engine.Job {
	return engine.Job{
		Id: e.Id,

		BatchId:        e.BatchId,
		CaseInstanceId: e.CaseInstanceId,

		CompletedAt: timeOrNil(e.CompletedAt),
		CreatedAt:   e.CreatedAt,
		CreatedBy:   e.CreatedBy,
		DueAt:       e.DueAt,
		Error:       e.Error.String,
		RetriesLeft: e.RetriesLeft,
		TenantId:    e.TenantId.String,
		Type:        e.Type,
	}
}

type JobRepository interface {
	Insert(*JobEntity) error
	Select(id int64) (*JobEntity, error)
	// SelectDue selects uncompleted jobs, which are due, ordered by due date and ID.
	// If batchId is 0, jobs of all batches are selected.
	SelectDue(batchId int64, dueAt time.Time, limit int) ([]*JobEntity, error)
	// CountOpen counts the uncompleted jobs of a batch.
	CountOpen(batchId int64) (int, error)
	Update(*JobEntity) error

	Query(engine.JobCriteria, engine.QueryOptions, TenantFilter) ([]engine.Job, error)
}

// ExecuteJob executes a job for its case instance.
//
// When the execution fails, the error is recorded and the job is completed nevertheless. If retries are left, a
// retry job is created. A batch is completed, when all of its jobs are completed.
func ExecuteJob(ctx Context, cmd engine.ExecuteJobCmd) (engine.Job, error) {
	const title = "failed to execute job"

	if err := validateCmd(title, cmd); err != nil {
		return engine.Job{}, err
	}

	job, err := ctx.Jobs().Select(cmd.Id)
	if err == pgx.ErrNoRows {
		return engine.Job{}, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  title,
			Detail: fmt.Sprintf("job %d could not be found", cmd.Id),
		}
	}
	if err != nil {
		return engine.Job{}, err
	}

	if err := newCommandTenantFilter(ctx).checkAccess(title, job.TenantId); err != nil {
		return engine.Job{}, err
	}
	if job.CompletedAt.Valid {
		return engine.Job{}, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  title,
			Detail: fmt.Sprintf("job %d is completed", cmd.Id),
		}
	}

	batch, err := ctx.Batches().Select(job.BatchId)
	if err != nil {
		return engine.Job{}, fmt.Errorf("failed to select batch %d: %v", job.BatchId, err)
	}

	tree, err := runJob(ctx, job, batch, cmd.WorkerId)
	if err != nil {
		job.Error = text(err.Error())
	} else if err := tree.flush(); err != nil {
		return engine.Job{}, err
	}

	job.CompletedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
	if err := ctx.Jobs().Update(job); err != nil {
		return engine.Job{}, err
	}

	if job.Error.Valid && job.RetriesLeft > 0 {
		retry := JobEntity{
			Id: ctx.Services().NextId(),

			BatchId:        job.BatchId,
			CaseInstanceId: job.CaseInstanceId,
			DefinitionId:   job.DefinitionId,

			CreatedAt:   ctx.Time(),
			CreatedBy:   ctx.Options().EngineId,
			DueAt:       ctx.Time(),
			RetriesLeft: job.RetriesLeft - 1,
			TenantId:    job.TenantId,
			Type:        job.Type,
		}

		if err := ctx.Jobs().Insert(&retry); err != nil {
			return engine.Job{}, err
		}
	}

	openJobs, err := ctx.Jobs().CountOpen(batch.Id)
	if err != nil {
		return engine.Job{}, err
	}
	if openJobs == 0 {
		batch.CompletedAt = pgtype.Timestamp{Time: ctx.Time(), Valid: true}
		if err := ctx.Batches().Update(batch); err != nil {
			return engine.Job{}, err
		}
	}

	if err := logOperation(ctx, OperationLogEntity{
		CaseInstanceId: pgtypeInt8(job.CaseInstanceId),
		EntityId:       job.Id,
		EntityType:     EntityJob,
		Operation:      OperationExecuteJob,
		TenantId:       job.TenantId,
		WorkerId:       cmd.WorkerId,
	}); err != nil {
		return engine.Job{}, err
	}

	return job.Job(), nil
}

// runJob performs the change of a job on the tree of its case instance, which must be flushed afterwards.
func runJob(ctx Context, job *JobEntity, batch *BatchEntity, workerId string) (*caseTree, error) {
	scope, err := ctx.Scopes().Select(job.CaseInstanceId)
	if err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to execute job",
			Detail: fmt.Sprintf("case instance %d could not be found", job.CaseInstanceId),
		}
	}
	if err != nil {
		return nil, err
	}

	tree, err := loadCaseTree(ctx, scope.CaseInstanceId, workerId)
	if err != nil {
		return nil, err
	}

	r := newCaseRuntime(tree)

	switch job.Type {
	case engine.BatchResume:
		err = r.transition(0, engine.TransitionResume)
	case engine.BatchSuspend:
		err = r.transition(0, engine.TransitionSuspend)
	case engine.BatchTerminate:
		err = r.transition(0, engine.TransitionTerminate)
	case engine.BatchSetVariables:
		err = setBatchVariables(r, batch)
	default:
		err = engine.Error{
			Type:   engine.ErrorBug,
			Title:  "failed to execute job",
			Detail: fmt.Sprintf("batch type %s is not supported", job.Type),
		}
	}
	if err != nil {
		return nil, err
	}

	return tree, nil
}

func setBatchVariables(r *caseRuntime, batch *BatchEntity) error {
	variables, err := DecodeValues(batch.Variables.String)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := r.setVariable(0, name, variables[name], false); err != nil {
			return err
		}
	}
	return nil
}

// SelectDueJobs selects due jobs, which are executed afterwards - each by its own command.
func SelectDueJobs(ctx Context, cmd engine.ExecuteJobsCmd) ([]*JobEntity, error) {
	if err := validateCmd("failed to execute jobs", cmd); err != nil {
		return nil, err
	}
	return ctx.Jobs().SelectDue(cmd.BatchId, ctx.Time(), cmd.Limit)
}

func NewJobExecutor(e engine.Engine, options engine.Options) *JobExecutor {
	tickerCtx, tickerCancel := context.WithCancel(context.Background())

	return &JobExecutor{
		engine:   e,
		engineId: options.EngineId,
		limit:    options.JobExecutorLimit,
		logger:   options.Logger,

		tickerCtx:    tickerCtx,
		tickerCancel: tickerCancel,
		ticker:       time.NewTicker(options.JobExecutorInterval),
	}
}

// JobExecutor executes due jobs periodically.
type JobExecutor struct {
	engine   engine.Engine
	engineId string
	limit    int
	logger   *zap.Logger

	tickerCtx    context.Context
	tickerCancel context.CancelFunc
	ticker       *time.Ticker

	done chan struct{} // Closed, when the executing goroutine exited.
}

func (e *JobExecutor) Execute() {
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)

		for {
			select {
			case <-e.ticker.C:
				e.executeJobs()
			case <-e.tickerCtx.Done():
				return
			}
		}
	}()
}

// Stop stops the job executor and waits until an execution in progress has finished.
func (e *JobExecutor) Stop() {
	e.ticker.Stop()
	e.tickerCancel()

	if e.done != nil {
		<-e.done
	}
}

func (e *JobExecutor) executeJobs() {
	completedJobs, failedJobs, err := e.engine.ExecuteJobs(e.tickerCtx, engine.ExecuteJobsCmd{
		Limit:    e.limit,
		WorkerId: e.engineId,
	})
	if err != nil {
		e.logger.Error("failed to execute jobs", zap.Error(err))
	}

	for _, job := range failedJobs {
		e.logger.Warn("job failed",
			zap.Int64("jobId", job.Id),
			zap.Int64("caseInstanceId", job.CaseInstanceId),
			zap.String("error", job.Error),
			zap.Int("retriesLeft", job.RetriesLeft),
		)
	}

	if len(completedJobs) != 0 {
		e.logger.Debug("executed jobs", zap.Int("count", len(completedJobs)))
	}
}
