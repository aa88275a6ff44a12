package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/model"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type DefinitionEntity struct {
	Id int64

	DeploymentId int64

	CreatedAt    time.Time
	Key          string
	Name         pgtype.Text
	ResourceName string
	TenantId     pgtype.Text
	Version      int
}

func (e DefinitionEntity) Definition() engine.Definition {
	return engine.Definition{
		Id: e.Id,

		DeploymentId: e.DeploymentId,

		CreatedAt:    e.CreatedAt,
		Key:          e.Key,
		Name:         e.Name.String,
		ResourceName: e.ResourceName,
		TenantId:     e.TenantId.String,
		Version:      e.Version,
	}
}

type DefinitionRepository interface {
	Insert(*DefinitionEntity) error
	Select(id int64) (*DefinitionEntity, error)
	// SelectLatestVersion returns the latest version of a key within a tenant or 0, if no definition exists.
	SelectLatestVersion(key string, tenantId pgtype.Text) (int, error)

	Query(engine.DefinitionCriteria, engine.QueryOptions, TenantFilter) ([]engine.Definition, error)
	QueryStatistics(engine.DefinitionStatisticsCriteria, engine.QueryOptions, TenantFilter) ([]engine.DefinitionStatistics, error)
}

// A Definition is a parsed case definition, including the script resources, its listeners reference.
type Definition struct {
	Entity  *DefinitionEntity
	Case    *model.Case
	Scripts map[string]string
}

func NewDefinitionCache(size int) (*DefinitionCache, error) {
	definitions, err := lru.New[int64, *Definition](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create definition cache: %v", err)
	}
	return &DefinitionCache{definitions: definitions}, nil
}

// DefinitionCache caches parsed definitions by ID. Since definitions are immutable, cached definitions never
// become stale.
type DefinitionCache struct {
	definitions *lru.Cache[int64, *Definition]
}

func (c *DefinitionCache) Add(definition *Definition) {
	c.definitions.Add(definition.Entity.Id, definition)
}

func (c *DefinitionCache) Clear() {
	c.definitions.Purge()
}

func (c *DefinitionCache) Get(id int64) (*Definition, bool) {
	return c.definitions.Get(id)
}

func (c *DefinitionCache) GetOrCache(ctx Context, id int64) (*Definition, error) {
	if definition, ok := c.Get(id); ok {
		return definition, nil
	}

	entity, err := ctx.Definitions().Select(id)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to select definition %d: %v", id, err)
	}
	if err != nil {
		return nil, err
	}

	resource, err := ctx.Resources().Select(entity.DeploymentId, entity.ResourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to select resource %s of definition %d: %v", entity.ResourceName, id, err)
	}

	caseModel, err := model.New(strings.NewReader(resource.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse resource %s of definition %d: %v", entity.ResourceName, id, err)
	}

	caseElement := caseModel.CaseById(entity.Key)
	if caseElement == nil {
		return nil, fmt.Errorf("resource %s of definition %d has no case %s", entity.ResourceName, id, entity.Key)
	}

	scripts := make(map[string]string)
	for _, name := range caseElement.Scripts() {
		if _, ok := scripts[name]; ok {
			continue
		}

		script, err := ctx.Resources().Select(entity.DeploymentId, name)
		if err != nil {
			return nil, fmt.Errorf("failed to select script resource %s of definition %d: %v", name, id, err)
		}

		scripts[name] = script.Content
	}

	definition := Definition{
		Entity:  entity,
		Case:    caseElement,
		Scripts: scripts,
	}

	c.Add(&definition)
	return &definition, nil
}
