package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	envLookupAllowed    = "envLookupAllowed"    // flag level annotation that allows an environment variable lookup
	envPrefix           = "GO_CMMN_"
	jobExecutorRequired = "jobExecutorRequired" // annotation, indicating that the engine's job executor must be enabled
	noEngineRequired    = "noEngineRequired"    // annotation, indicating that no engine is required to run the command
	program             = "go-cmmn"
)

func New(version string) *Cli {
	cli := Cli{version: version}

	cli.rootCmd = newRootCmd(&cli)

	return &cli
}

type Cli struct {
	version string

	rootCmd *cobra.Command

	e            engine.Engine
	logger       *zap.Logger
	debugEnabled bool
	workerId     string

	userId    string
	tenantIds []string
}

func (c *Cli) Execute() int {
	if err := c.rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func (c *Cli) help(cmd *cobra.Command, args []string) error {
	return cmd.Help()
}

// context returns a context, which carries an authentication, if a user ID or tenant IDs are provided.
func (c *Cli) context() context.Context {
	ctx := context.Background()
	if c.userId == "" && len(c.tenantIds) == 0 {
		return ctx
	}
	return engine.WithAuthentication(ctx, engine.Authentication{
		UserId:    c.userId,
		TenantIds: c.tenantIds,
	})
}

func newRootCmd(cli *Cli) *cobra.Command {
	var configFileName string

	c := cobra.Command{
		Use:   program,
		Short: "A CLI for go-cmmn case engines",
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			c.SilenceUsage = true

			if _, ok := c.Annotations[noEngineRequired]; ok {
				return nil
			}

			lookUpEnv(c.Flags())

			if cli.e != nil {
				return nil // skip engine creation when testing
			}

			var (
				logger *zap.Logger
				err    error
			)
			if cli.debugEnabled {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return fmt.Errorf("failed to create logger: %v", err)
			}

			config, err := LoadConfig(configFileName)
			if err != nil {
				return err
			}

			_, jobExecutorEnabled := c.Annotations[jobExecutorRequired]

			e, err := config.newEngine(logger, jobExecutorEnabled)
			if err != nil {
				return fmt.Errorf("failed to create engine: %v", err)
			}

			cli.e = e
			cli.logger = logger
			return nil
		},
		RunE: cli.help,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cli.e != nil {
				cli.e.Shutdown()
			}
			if cli.logger != nil {
				_ = cli.logger.Sync()
			}
		},
		Annotations: map[string]string{noEngineRequired: ""},
	}

	c.PersistentFlags().StringVar(&configFileName, "config", "", "Path to a YAML configuration file")
	c.PersistentFlags().StringVar(&cli.workerId, "worker-id", program, "Worker ID")
	c.PersistentFlags().StringVar(&cli.userId, "user-id", "", "ID of the user, performing a command")
	c.PersistentFlags().StringSliceVar(&cli.tenantIds, "tenant", nil, "Tenants, the user is member of")
	c.PersistentFlags().BoolVar(&cli.debugEnabled, "debug", false, "Enable debug logging")

	c.PersistentFlags().SetAnnotation("config", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("worker-id", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("user-id", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("tenant", envLookupAllowed, nil)
	c.PersistentFlags().SetAnnotation("debug", envLookupAllowed, nil)

	c.MarkPersistentFlagFilename("config", ".yaml", ".yml")

	c.AddCommand(newBatchCmd(cli))
	c.AddCommand(newCaseInstanceCmd(cli))
	c.AddCommand(newDefinitionCmd(cli))
	c.AddCommand(newDeploymentCmd(cli))
	c.AddCommand(newJobCmd(cli))
	c.AddCommand(newOperationLogCmd(cli))
	c.AddCommand(newScopeCmd(cli))
	c.AddCommand(newTaskCmd(cli))
	c.AddCommand(newVariableCmd(cli))
	c.AddCommand(newRunCmd(cli))
	c.AddCommand(newSetTimeCmd(cli))
	c.AddCommand(newValidateCmd(cli))
	c.AddCommand(newVersionCmd(cli))

	return &c
}

// lookUpEnv sets unchanged flags, which allow an environment variable lookup.
func lookUpEnv(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		if _, ok := f.Annotations[envLookupAllowed]; !ok {
			return
		}

		// e.g. worker-id -> GO_CMMN_WORKER_ID
		key := envPrefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")

		if value, ok := os.LookupEnv(key); ok {
			f.Value.Set(value)
		}
	})
}

func newRunCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "run",
		Short: "Run the engine's job executor until interrupted",
		RunE: func(c *cobra.Command, _ []string) error {
			signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cli.logger != nil {
				cli.logger.Info("job executor started", zap.String("workerId", cli.workerId))
			}

			<-signalCtx.Done()

			if cli.logger != nil {
				cli.logger.Info("job executor stopped")
			}
			return nil
		},
		Annotations: map[string]string{jobExecutorRequired: ""},
	}

	return &c
}

func newSetTimeCmd(cli *Cli) *cobra.Command {
	var (
		timeV timeValue

		cmd engine.SetTimeCmd
	)

	c := cobra.Command{
		Use:   "set-time",
		Short: "Set the engine's time",
		RunE: func(c *cobra.Command, _ []string) error {
			cmd.Time = time.Time(timeV)

			return cli.e.SetTime(cli.context(), cmd)
		},
	}

	c.Flags().Var(&timeV, "time", "A future point in time")

	c.MarkFlagRequired("time")

	return &c
}

func newVersionCmd(cli *Cli) *cobra.Command {
	c := cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(c *cobra.Command, _ []string) {
			c.Println(cli.version)
		},
		Annotations: map[string]string{noEngineRequired: ""},
	}

	return &c
}
