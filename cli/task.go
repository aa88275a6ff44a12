package cli

import (
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
)

func newTaskCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "task",
		Short:       "Query human tasks",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newTaskQueryCmd(cli))

	return &c
}

func newTaskQueryCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.TaskCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query human tasks",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryTasks(cli.context(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"CASE INSTANCE ID",
				"SCOPE ID",
				"ACTIVITY ID",
				"NAME",
				"TENANT ID",
				"CREATED AT",
			})

			for _, result := range results {
				table.addRow([]string{
					formatId(result.Id),
					formatId(result.CaseInstanceId),
					formatId(result.ScopeId),
					result.ActivityId,
					result.Name,
					result.TenantId,
					formatTime(result.CreatedAt),
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int64Var(&criteria.Id, "id", 0, "Task ID")
	c.Flags().Int64Var(&criteria.CaseInstanceId, "case-instance-id", 0, "Case instance ID")
	c.Flags().StringVar(&criteria.ActivityId, "activity-id", "", "ID of the human task")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}
