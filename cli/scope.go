package cli

import (
	"strconv"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
)

func newScopeCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "scope",
		Short:       "Manage and query scopes",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newScopeCreateChildCmd(cli))
	c.AddCommand(newScopeTransitionCmd(cli))
	c.AddCommand(newScopeQueryCmd(cli))

	return &c
}

func newScopeCreateChildCmd(cli *Cli) *cobra.Command {
	var cmd engine.CreateChildScopeCmd

	c := cobra.Command{
		Use:   "create-child",
		Short: "Create a scope for a plan item within a parent scope",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			scope, err := cli.e.CreateChildScope(cli.context(), cmd)
			if err != nil {
				return err
			}

			c.Printf("%d %s\n", scope.Id, scope.State)
			return nil
		},
	}

	c.Flags().Int64Var(&cmd.ParentId, "parent-id", 0, "Parent scope ID")
	c.Flags().StringVar(&cmd.ActivityId, "activity-id", "", "ID of the plan item")
	c.Flags().StringVar(&cmd.TenantId, "tenant-id", "", "Tenant of the case instance")

	c.MarkFlagRequired("parent-id")
	c.MarkFlagRequired("activity-id")

	return &c
}

func newScopeTransitionCmd(cli *Cli) *cobra.Command {
	var (
		transition transitionValue

		cmd engine.TransitionScopeCmd
	)

	c := cobra.Command{
		Use:   "transition",
		Short: "Perform a lifecycle transition",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.Transition = engine.Transition(transition)
			cmd.WorkerId = cli.workerId

			scope, err := cli.e.TransitionScope(cli.context(), cmd)
			if err != nil {
				return err
			}

			c.Println(scope.State)
			return nil
		},
	}

	c.Flags().Int64Var(&cmd.ScopeId, "id", 0, "Scope ID")
	c.Flags().Var(&transition, "transition", "Transition to perform, e.g. COMPLETE")

	c.MarkFlagRequired("id")
	c.MarkFlagRequired("transition")

	return &c
}

func newScopeQueryCmd(cli *Cli) *cobra.Command {
	var (
		state scopeStateValue

		criteria engine.ScopeCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query scopes",
		RunE: func(c *cobra.Command, _ []string) error {
			criteria.State = engine.ScopeState(state)

			return queryScopes(c, cli, criteria, options)
		},
	}

	c.Flags().Int64Var(&criteria.Id, "id", 0, "Scope ID")
	c.Flags().Int64Var(&criteria.CaseInstanceId, "case-instance-id", 0, "Case instance ID")
	c.Flags().Int64Var(&criteria.ParentId, "parent-id", 0, "Parent scope ID")
	c.Flags().StringVar(&criteria.ActivityId, "activity-id", "", "ID of the plan item")
	c.Flags().Var(&state, "state", "Scope state")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}

func queryScopes(c *cobra.Command, cli *Cli, criteria engine.ScopeCriteria, options engine.QueryOptions) error {
	q := cli.e.CreateQuery()
	q.SetOptions(options)

	results, err := q.QueryScopes(cli.context(), criteria)
	if err != nil {
		return err
	}

	table := newTable([]string{
		"ID",
		"CASE INSTANCE ID",
		"PARENT ID",
		"ACTIVITY ID",
		"ACTIVITY TYPE",
		"STATE",
		"BUSINESS KEY",
		"TENANT ID",
		"REACTIVATIONS",
		"CREATED AT",
		"ENDED AT",
	})

	for _, result := range results {
		table.addRow([]string{
			formatId(result.Id),
			formatId(result.CaseInstanceId),
			formatId(result.ParentId),
			result.ActivityId,
			result.ActivityType.String(),
			result.State.String(),
			result.BusinessKey,
			result.TenantId,
			strconv.Itoa(result.ReactivationCount),
			formatTime(result.CreatedAt),
			formatTimeOrNil(result.EndedAt),
		})
	}

	c.Print(table.format())
	return nil
}
