package mem

import (
	"context"
	"testing"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
)

func mustCreateEngine(t *testing.T) engine.Engine {
	e, err := New()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func mustInsertEntities(t *testing.T, e engine.Engine, entities []any) {
	memEngine := e.(*memEngine)

	ctx := memEngine.wlock(context.Background())
	defer memEngine.unlock()

	for _, entity := range entities {
		switch entity := entity.(type) {
		case *internal.BatchEntity:
			ctx.Batches().Insert(entity)
		case *internal.DefinitionEntity:
			ctx.Definitions().Insert(entity)
		case *internal.DeploymentEntity:
			ctx.Deployments().Insert(entity)
		case *internal.JobEntity:
			ctx.Jobs().Insert(entity)
		case *internal.ScopeEntity:
			ctx.Scopes().Insert(entity)
		case *internal.TaskEntity:
			ctx.Tasks().Insert(entity)
		case *internal.VariableEntity:
			ctx.Variables().Insert(entity)
		default:
			t.Fatalf("unsupported entity type %T", entity)
		}
	}
}
