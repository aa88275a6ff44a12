package cli

import (
	"strconv"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
)

func newBatchCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "batch",
		Short:       "Create and query batches",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newBatchCreateCmd(cli))
	c.AddCommand(newBatchQueryCmd(cli))

	return &c
}

func newBatchCreateCmd(cli *Cli) *cobra.Command {
	var (
		batchType  batchTypeValue
		variablesV map[string]string

		cmd engine.CreateBatchCmd
	)

	c := cobra.Command{
		Use:   "create",
		Short: "Create a batch, consisting of one job per case instance",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.Type = engine.BatchType(batchType)
			if len(variablesV) != 0 {
				cmd.Variables = mapVariables(variablesV)
			}
			cmd.WorkerId = cli.workerId

			batch, err := cli.e.CreateBatch(cli.context(), cmd)
			if err != nil {
				return err
			}

			c.Println(batch.Id)
			return nil
		},
	}

	c.Flags().Var(&batchType, "type", "Batch type: RESUME, SET_VARIABLES, SUSPEND or TERMINATE")
	c.Flags().Int64SliceVar(&cmd.CaseInstanceIds, "case-instance-id", nil, "Case instance IDs")
	c.Flags().StringToStringVar(&variablesV, "variable", nil, "Variable, consisting of name and JSON or string value")
	c.Flags().StringVar(&cmd.Schedule, "schedule", "", "CRON expression, determining when the jobs are due")

	c.MarkFlagRequired("type")
	c.MarkFlagRequired("case-instance-id")

	return &c
}

func newBatchQueryCmd(cli *Cli) *cobra.Command {
	var (
		batchType batchTypeValue

		criteria engine.BatchCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query batches",
		RunE: func(c *cobra.Command, _ []string) error {
			criteria.Type = engine.BatchType(batchType)

			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryBatches(cli.context(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"TYPE",
				"TOTAL JOBS",
				"TENANT ID",
				"CREATED AT",
				"CREATED BY",
				"COMPLETED AT",
			})

			for _, result := range results {
				table.addRow([]string{
					formatId(result.Id),
					result.Type.String(),
					strconv.Itoa(result.TotalJobs),
					result.TenantId,
					formatTime(result.CreatedAt),
					result.CreatedBy,
					formatTimeOrNil(result.CompletedAt),
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int64Var(&criteria.Id, "id", 0, "Batch ID")
	c.Flags().Var(&batchType, "type", "Batch type")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}

func newJobCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "job",
		Short:       "Execute and query jobs",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newJobExecuteCmd(cli))
	c.AddCommand(newJobExecuteDueCmd(cli))
	c.AddCommand(newJobQueryCmd(cli))

	return &c
}

func newJobExecuteCmd(cli *Cli) *cobra.Command {
	var cmd engine.ExecuteJobCmd

	c := cobra.Command{
		Use:   "execute",
		Short: "Execute a job, regardless of its due date",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			job, err := cli.e.ExecuteJob(cli.context(), cmd)
			if err != nil {
				return err
			}

			if job.HasError() {
				c.Printf("%d failed: %s\n", job.Id, job.Error)
			} else {
				c.Printf("%d completed\n", job.Id)
			}
			return nil
		},
	}

	c.Flags().Int64Var(&cmd.Id, "id", 0, "Job ID")

	c.MarkFlagRequired("id")

	return &c
}

func newJobExecuteDueCmd(cli *Cli) *cobra.Command {
	var cmd engine.ExecuteJobsCmd

	c := cobra.Command{
		Use:   "execute-due",
		Short: "Execute due jobs",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			completedJobs, failedJobs, err := cli.e.ExecuteJobs(cli.context(), cmd)

			c.Printf("completed: %d, failed: %d\n", len(completedJobs), len(failedJobs))
			return err
		},
	}

	c.Flags().Int64Var(&cmd.BatchId, "batch-id", 0, "Batch ID")
	c.Flags().IntVar(&cmd.Limit, "limit", 10, "Maximum number of jobs to execute")

	return &c
}

func newJobQueryCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.JobCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query jobs",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryJobs(cli.context(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"BATCH ID",
				"CASE INSTANCE ID",
				"TYPE",
				"DUE AT",
				"RETRIES LEFT",
				"COMPLETED AT",
				"ERROR",
			})

			for _, result := range results {
				table.addRow([]string{
					formatId(result.Id),
					formatId(result.BatchId),
					formatId(result.CaseInstanceId),
					result.Type.String(),
					formatTime(result.DueAt),
					strconv.Itoa(result.RetriesLeft),
					formatTimeOrNil(result.CompletedAt),
					result.Error,
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int64Var(&criteria.Id, "id", 0, "Job ID")
	c.Flags().Int64Var(&criteria.BatchId, "batch-id", 0, "Batch ID")
	c.Flags().Int64Var(&criteria.CaseInstanceId, "case-instance-id", 0, "Case instance ID")
	c.Flags().BoolVar(&criteria.Failed, "failed", false, "Restrict results to jobs with an error and no retries left")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}
