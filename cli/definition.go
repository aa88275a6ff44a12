package cli

import (
	"strconv"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
)

func newDefinitionCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "definition",
		Short:       "Query definitions",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newDefinitionQueryCmd(cli))
	c.AddCommand(newDefinitionStatisticsCmd(cli))

	return &c
}

func newDefinitionQueryCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.DefinitionCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query definitions",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryDefinitions(cli.context(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"KEY",
				"VERSION",
				"NAME",
				"TENANT ID",
				"DEPLOYMENT ID",
				"RESOURCE",
				"CREATED AT",
			})

			for _, result := range results {
				table.addRow([]string{
					formatId(result.Id),
					result.Key,
					strconv.Itoa(result.Version),
					result.Name,
					result.TenantId,
					formatId(result.DeploymentId),
					result.ResourceName,
					formatTime(result.CreatedAt),
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int64Var(&criteria.Id, "id", 0, "Definition ID")
	c.Flags().Int64Var(&criteria.DeploymentId, "deployment-id", 0, "Deployment ID")
	c.Flags().StringVar(&criteria.Key, "key", "", "Definition key")
	c.Flags().IntVar(&criteria.Version, "version", 0, "Definition version")
	c.Flags().BoolVar(&criteria.LatestVersion, "latest-version", false, "Restrict results to the latest version per key and tenant")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}

func newDefinitionStatisticsCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.DefinitionStatisticsCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "statistics",
		Short: "Query running case instances and failed jobs per definition",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryDefinitionStatistics(cli.context(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"DEFINITION ID",
				"KEY",
				"VERSION",
				"TENANT ID",
				"INSTANCES",
				"FAILED JOBS",
			})

			for _, result := range results {
				table.addRow([]string{
					formatId(result.DefinitionId),
					result.Key,
					strconv.Itoa(result.Version),
					result.TenantId,
					strconv.Itoa(result.Instances),
					strconv.Itoa(result.FailedJobs),
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().StringVar(&criteria.Key, "key", "", "Definition key")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}
