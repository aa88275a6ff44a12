package mem

import (
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
)

type operationLogRepository struct {
	entities []internal.OperationLogEntity
}

func (r *operationLogRepository) Insert(entity *internal.OperationLogEntity) error {
	r.entities = append(r.entities, *entity)
	return nil
}

func (r *operationLogRepository) Query(c engine.OperationLogCriteria, o engine.QueryOptions, f internal.TenantFilter) ([]engine.OperationLogEntry, error) {
	results := make([]engine.OperationLogEntry, 0)
	for _, e := range r.entities {
		if c.CaseInstanceId != 0 && c.CaseInstanceId != e.CaseInstanceId.Int64 {
			continue
		}
		if c.Operation != "" && c.Operation != e.Operation {
			continue
		}
		if c.UserId != "" && c.UserId != e.UserId.String {
			continue
		}
		if !f.Match(e.TenantId) {
			continue
		}

		results = append(results, e.OperationLogEntry())
	}

	return sortAndPage(results, o, func(v engine.OperationLogEntry) sortKey {
		return sortKey{id: v.Id, tenantId: v.TenantId}
	}), nil
}
