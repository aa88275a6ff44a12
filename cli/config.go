package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/mem"
	"github.com/gclaussn/go-cmmn/engine/pg"
	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
)

// Config configures the engine, embedded by the CLI.
//
// Values are read from a YAML file, if provided, and from environment variables, which take precedence.
type Config struct {
	// If empty, an in-memory engine is used.
	DatabaseUrl string        `yaml:"databaseUrl" env:"GO_CMMN_DATABASE_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"GO_CMMN_TIMEOUT" env-default:"30s"`

	EngineId          string `yaml:"engineId" env:"GO_CMMN_ENGINE_ID" env-default:"default-engine"`
	NodeId            int64  `yaml:"nodeId" env:"GO_CMMN_NODE_ID" env-default:"1"`
	DefaultQueryLimit int    `yaml:"defaultQueryLimit" env:"GO_CMMN_DEFAULT_QUERY_LIMIT" env-default:"1000"`

	TenantCheckEnabled    bool `yaml:"tenantCheckEnabled" env:"GO_CMMN_TENANT_CHECK_ENABLED" env-default:"true"`
	InvokeCustomListeners bool `yaml:"invokeCustomListeners" env:"GO_CMMN_INVOKE_CUSTOM_LISTENERS" env-default:"true"`
	BuiltinListenersFirst bool `yaml:"builtinListenersFirst" env:"GO_CMMN_BUILTIN_LISTENERS_FIRST" env-default:"true"`
	MaxDispatchDepth      int  `yaml:"maxDispatchDepth" env:"GO_CMMN_MAX_DISPATCH_DEPTH" env-default:"64"`

	JobExecutorInterval time.Duration `yaml:"jobExecutorInterval" env:"GO_CMMN_JOB_EXECUTOR_INTERVAL" env-default:"60s"`
	JobExecutorLimit    int           `yaml:"jobExecutorLimit" env:"GO_CMMN_JOB_EXECUTOR_LIMIT" env-default:"10"`
	JobRetryLimit       int           `yaml:"jobRetryLimit" env:"GO_CMMN_JOB_RETRY_LIMIT" env-default:"2"`
}

// LoadConfig reads the configuration from environment variables and, if fileName is not empty, from a YAML file.
func LoadConfig(fileName string) (Config, error) {
	var config Config

	if fileName == "" {
		if err := cleanenv.ReadEnv(&config); err != nil {
			return Config{}, fmt.Errorf("failed to read configuration from environment: %v", err)
		}
		return config, nil
	}

	if _, err := os.Stat(fileName); errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("configuration file %s does not exist", fileName)
	}
	if err := cleanenv.ReadConfig(fileName, &config); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration file %s: %v", fileName, err)
	}
	return config, nil
}

// applyTo sets the common engine options.
func (c Config) applyTo(o *engine.Options) {
	o.EngineId = c.EngineId
	o.NodeId = c.NodeId
	o.DefaultQueryLimit = c.DefaultQueryLimit

	o.TenantCheckEnabled = c.TenantCheckEnabled
	o.InvokeCustomListeners = c.InvokeCustomListeners
	o.BuiltinListenersFirst = c.BuiltinListenersFirst
	o.MaxDispatchDepth = c.MaxDispatchDepth

	o.JobExecutorInterval = c.JobExecutorInterval
	o.JobExecutorLimit = c.JobExecutorLimit
	o.JobRetryLimit = c.JobRetryLimit
}

// newEngine creates a pg engine, when a database URL is configured, or a mem engine otherwise.
func (c Config) newEngine(logger *zap.Logger, jobExecutorEnabled bool) (engine.Engine, error) {
	if c.DatabaseUrl == "" {
		logger.Warn("no database URL configured, using in-memory engine")

		return mem.New(func(o *mem.Options) {
			c.applyTo(&o.Common)
			o.Common.JobExecutorEnabled = jobExecutorEnabled
			o.Common.Logger = logger
		})
	}

	return pg.New(c.DatabaseUrl, func(o *pg.Options) {
		c.applyTo(&o.Common)
		o.Common.JobExecutorEnabled = jobExecutorEnabled
		o.Common.Logger = logger

		o.Timeout = c.Timeout
	})
}
