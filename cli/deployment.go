package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
	"github.com/spf13/cobra"
)

func newDeploymentCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:         "deployment",
		Short:       "Create and query deployments",
		RunE:        cli.help,
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.AddCommand(newDeploymentCreateCmd(cli))
	c.AddCommand(newDeploymentQueryCmd(cli))

	return &c
}

func newDeploymentCreateCmd(cli *Cli) *cobra.Command {
	var (
		fileNames []string

		cmd engine.CreateDeploymentCmd
	)

	c := cobra.Command{
		Use:   "create",
		Short: "Deploy case models and scripts",
		RunE: func(c *cobra.Command, _ []string) error {
			for _, fileName := range fileNames {
				content, err := readFile(fileName)
				if err != nil {
					return err
				}

				cmd.Resources = append(cmd.Resources, engine.Resource{
					Name:    filepath.Base(fileName),
					Content: content,
				})
			}

			cmd.WorkerId = cli.workerId

			deployment, err := cli.e.CreateDeployment(cli.context(), cmd)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"DEFINITION ID",
				"KEY",
				"VERSION",
				"RESOURCE",
			})

			for _, definition := range deployment.Definitions {
				table.addRow([]string{
					formatId(definition.Id),
					definition.Key,
					strconv.Itoa(definition.Version),
					definition.ResourceName,
				})
			}

			c.Println(deployment.Id)
			c.Print(table.format())
			return nil
		},
	}

	c.Flags().StringSliceVar(&fileNames, "file", nil, "Path to a case model or script file")

	c.Flags().StringVar(&cmd.Name, "name", "", "Name of the deployment")
	c.Flags().StringVar(&cmd.TenantId, "tenant-id", "", "Tenant of the deployment")

	c.MarkFlagRequired("file")
	c.MarkFlagRequired("name")

	c.MarkFlagFilename("file", ".yaml", ".yml", ".js")

	return &c
}

func newDeploymentQueryCmd(cli *Cli) *cobra.Command {
	var (
		criteria engine.DeploymentCriteria
		options  engine.QueryOptions
	)

	c := cobra.Command{
		Use:   "query",
		Short: "Query deployments",
		RunE: func(c *cobra.Command, _ []string) error {
			q := cli.e.CreateQuery()
			q.SetOptions(options)

			results, err := q.QueryDeployments(cli.context(), criteria)
			if err != nil {
				return err
			}

			table := newTable([]string{
				"ID",
				"NAME",
				"TENANT ID",
				"CREATED AT",
				"CREATED BY",
			})

			for _, result := range results {
				table.addRow([]string{
					formatId(result.Id),
					result.Name,
					result.TenantId,
					formatTime(result.CreatedAt),
					result.CreatedBy,
				})
			}

			c.Print(table.format())
			return nil
		},
	}

	c.Flags().Int64Var(&criteria.Id, "id", 0, "Deployment ID")
	c.Flags().StringVar(&criteria.Name, "name", "", "Deployment name")

	flagTenantCriteria(&c, &criteria.TenantCriteria)
	flagQueryOptions(&c, &options)

	return &c
}

func newValidateCmd(_ *Cli) *cobra.Command {
	var fileName string

	c := cobra.Command{
		Use:   "validate",
		Short: "Validate a case model",
		RunE: func(c *cobra.Command, _ []string) error {
			content, err := readFile(fileName)
			if err != nil {
				return err
			}

			caseModel, err := model.New(strings.NewReader(content))

			var modelErrs model.Errors
			if errors.As(err, &modelErrs) {
				table := newTable([]string{"POINTER", "TYPE", "DETAIL"})
				for _, modelErr := range modelErrs {
					table.addRow([]string{modelErr.Pointer, modelErr.Type, modelErr.Detail})
				}

				c.Print(table.format())
				return fmt.Errorf("case model %s is invalid", fileName)
			}
			if err != nil {
				return err
			}

			for _, caseElement := range caseModel.Cases {
				c.Printf("%s: %d plan item(s)\n", caseElement.Id, len(caseElement.PlanModel.AllElements())-1)
			}
			return nil
		},
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.Flags().StringVar(&fileName, "file", "", "Path to a case model file")

	c.MarkFlagRequired("file")

	c.MarkFlagFilename("file", ".yaml", ".yml")

	return &c
}
