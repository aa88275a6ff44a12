package cli

import (
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
)

func newCaseInstanceCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "case-instance",
		Short:       "Create and query case instances",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newCaseInstanceCreateCmd(cli))
	c.AddCommand(newCaseInstanceQueryCmd(cli))

	return &c
}

func newCaseInstanceCreateCmd(cli *Cli) *cobra.Command {
	var (
		variablesV map[string]string

		cmd engine.CreateCaseInstanceCmd
	)

	c := cobra.Command{
		Use:   "create",
		Short: "Create a case instance",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.Variables = mapVariables(variablesV)
			cmd.WorkerId = cli.workerId

			caseInstance, err := cli.e.CreateCaseInstance(cli.context(), cmd)
			if err != nil {
				return err
			}

			c.Println(caseInstance.Id)
			return nil
		},
	}

	c.Flags().Int64Var(&cmd.DefinitionId, "definition-id", 0, "Definition ID")
	c.Flags().StringVar(&cmd.DefinitionKey, "definition-key", "", "Definition key, the latest version is used")
	c.Flags().StringVar(&cmd.TenantId, "tenant-id", "", "Tenant of the definition, identified by key")
	c.Flags().BoolVar(&cmd.WithoutTenantId, "without-tenant-id", false, "Use a definition without tenant, identified by key")
	c.Flags().StringVar(&cmd.BusinessKey, "business-key", "", "Business key")
	c.Flags().StringToStringVar(&variablesV, "variable", nil, "Variable, consisting of name and JSON or string value")

	c.MarkFlagsOneRequired("definition-id", "definition-key")
	c.MarkFlagsMutuallyExclusive("definition-id", "definition-key")

	return &c
}

func newCaseInstanceQueryCmd(cli *Cli) *cobra.Command {
	var (
		state scopeStateValue

		criteria engine.ScopeCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query case instances",
		RunE: func(c *cobra.Command, _ []string) error {
			criteria.CaseInstancesOnly = true
			criteria.State = engine.ScopeState(state)

			return queryScopes(c, cli, criteria, options)
		},
	}

	c.Flags().Int64Var(&criteria.Id, "id", 0, "Case instance ID")
	c.Flags().Int64Var(&criteria.DefinitionId, "definition-id", 0, "Definition ID")
	c.Flags().StringVar(&criteria.BusinessKey, "business-key", "", "Business key")
	c.Flags().Var(&state, "state", "Case instance state")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}
