package cli

import (
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
)

func newOperationLogCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.OperationLogCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "operation-log",
		Short: "Query the operation log",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryOperationLog(cli.context(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"OPERATION",
				"ENTITY TYPE",
				"ENTITY ID",
				"CASE INSTANCE ID",
				"TENANT ID",
				"USER ID",
				"WORKER ID",
				"TIMESTAMP",
			})

			for _, result := range results {
				table.addRow([]string{
					formatId(result.Id),
					result.Operation,
					result.EntityType,
					formatId(result.EntityId),
					formatId(result.CaseInstanceId),
					result.TenantId,
					result.UserId,
					result.WorkerId,
					formatTime(result.Timestamp),
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int64Var(&criteria.CaseInstanceId, "case-instance-id", 0, "Case instance ID")
	c.Flags().StringVar(&criteria.Operation, "operation", "", "Operation, e.g. CREATE_CASE_INSTANCE")
	c.Flags().StringVar(&criteria.UserId, "user", "", "ID of the user, who performed the operation")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}
