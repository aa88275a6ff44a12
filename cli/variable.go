package cli

import (
	"slices"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
)

func newVariableCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "variable",
		Short:       "Manage and query variables",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newVariableGetCmd(cli))
	c.AddCommand(newVariableSetCmd(cli))
	c.AddCommand(newVariableRemoveCmd(cli))
	c.AddCommand(newVariableQueryCmd(cli))

	return &c
}

func newVariableGetCmd(cli *Cli) *cobra.Command {
	var cmd engine.GetVariablesCmd

	c := cobra.Command{
		Use:   "get",
		Short: "Get variables, visible from a scope",
		RunE: func(c *cobra.Command, _ []string) error {
			variables, err := cli.e.GetVariables(cli.context(), cmd)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(variables))
			for name := range variables {
				names = append(names, name)
			}
			slices.Sort(names)

			table := newTable([]string{"NAME", "VALUE"})
			for _, name := range names {
				table.addRow([]string{name, formatValue(variables[name])})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int64Var(&cmd.ScopeId, "scope-id", 0, "Scope ID")
	c.Flags().StringSliceVar(&cmd.Names, "name", nil, "Names of variables to get")
	c.Flags().BoolVar(&cmd.Local, "local", false, "Get only the variables of the scope itself")

	c.MarkFlagRequired("scope-id")

	return &c
}

func newVariableSetCmd(cli *Cli) *cobra.Command {
	var (
		variablesV map[string]string

		cmd engine.SetVariablesCmd
	)

	c := cobra.Command{
		Use:   "set",
		Short: "Set variables, using a scope as source execution",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.Variables = mapVariables(variablesV)
			cmd.WorkerId = cli.workerId

			return cli.e.SetVariables(cli.context(), cmd)
		},
	}

	c.Flags().Int64Var(&cmd.ScopeId, "scope-id", 0, "Scope ID")
	c.Flags().StringToStringVar(&variablesV, "variable", nil, "Variable, consisting of name and JSON or string value")
	c.Flags().BoolVar(&cmd.Local, "local", false, "Set the variables on the scope itself")

	c.MarkFlagRequired("scope-id")
	c.MarkFlagRequired("variable")

	return &c
}

func newVariableRemoveCmd(cli *Cli) *cobra.Command {
	var cmd engine.RemoveVariablesCmd

	c := cobra.Command{
		Use:   "remove",
		Short: "Remove variables, visible from a scope",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.WorkerId = cli.workerId

			return cli.e.RemoveVariables(cli.context(), cmd)
		},
	}

	c.Flags().Int64Var(&cmd.ScopeId, "scope-id", 0, "Scope ID")
	c.Flags().StringSliceVar(&cmd.Names, "name", nil, "Names of variables to remove")
	c.Flags().BoolVar(&cmd.Local, "local", false, "Remove only variables of the scope itself")

	c.MarkFlagRequired("scope-id")
	c.MarkFlagRequired("name")

	return &c
}

func newVariableQueryCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.VariableCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query variables",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryVariables(cli.context(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"NAME",
				"CASE INSTANCE ID",
				"SCOPE ID",
				"SOURCE SCOPE ID",
				"TYPE",
				"VALUE",
				"UPDATED AT",
				"UPDATED BY",
			})

			for _, result := range results {
				table.addRow([]string{
					formatId(result.Id),
					result.Name,
					formatId(result.CaseInstanceId),
					formatId(result.ScopeId),
					formatId(result.SourceScopeId),
					result.TypeName,
					formatValue(result.Value),
					formatTime(result.UpdatedAt),
					result.UpdatedBy,
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int64Var(&criteria.CaseInstanceId, "case-instance-id", 0, "Case instance ID")
	c.Flags().Int64Var(&criteria.ScopeId, "scope-id", 0, "ID of the owning scope")
	c.Flags().StringSliceVar(&criteria.Names, "name", nil, "Names of variables to include")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}
