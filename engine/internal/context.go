package internal

import (
	"context"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
)

// Context provides access to the repositories and services, needed to execute a command or a query.
//
// A context is exclusively used by one command at a time. All changes, made via repositories, are committed when
// the command succeeds or discarded when it fails.
type Context interface {
	// Context returns the context of the caller, which may carry an [engine.Authentication].
	Context() context.Context
	Options() engine.Options
	Services() *Services
	Time() time.Time

	Batches() BatchRepository
	Definitions() DefinitionRepository
	Deployments() DeploymentRepository
	Jobs() JobRepository
	OperationLog() OperationLogRepository
	Resources() ResourceRepository
	Scopes() ScopeRepository
	Tasks() TaskRepository
	Variables() VariableRepository
}
