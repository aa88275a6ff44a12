package pg

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/gclaussn/go-cmmn/engine/internal"
)

var (
	sqlTemplateFunctions = template.FuncMap{
		"joinString":      joinString,
		"limitOffset":     limitOffset,
		"orderBy":         orderBy,
		"quoteString":     quoteString,
		"tenantCondition": tenantCondition,
	}

	sqlBatchQuery                *template.Template = newSqlTemplate("batch_query.sql")
	sqlDefinitionQuery           *template.Template = newSqlTemplate("definition_query.sql")
	sqlDefinitionStatisticsQuery *template.Template = newSqlTemplate("definition_statistics_query.sql")
	sqlDeploymentQuery           *template.Template = newSqlTemplate("deployment_query.sql")
	sqlJobQuery                  *template.Template = newSqlTemplate("job_query.sql")
	sqlOperationLogQuery         *template.Template = newSqlTemplate("operation_log_query.sql")
	sqlScopeQuery                *template.Template = newSqlTemplate("scope_query.sql")
	sqlTaskQuery                 *template.Template = newSqlTemplate("task_query.sql")
	sqlVariableQuery             *template.Template = newSqlTemplate("variable_query.sql")
)

func newSqlTemplate(name string) *template.Template {
	return template.Must(template.New(name).Funcs(sqlTemplateFunctions).ParseFS(resources, "sql/"+name))
}

func joinString(values []string) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = quoteString(v)
	}
	return strings.Join(s, ",")
}

// limitOffset renders the LIMIT and OFFSET clause of a query. A non-positive limit applies no restriction.
func limitOffset(o engine.QueryOptions) string {
	var s []string
	if o.Limit > 0 {
		s = append(s, "LIMIT "+strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		s = append(s, "OFFSET "+strconv.Itoa(o.Offset))
	}
	return strings.Join(s, " ")
}

// orderBy renders the ORDER BY expression of a query, using ID as tie-breaker.
// Rows without tenant come first in ascending order. Ordering by version is only supported, when versioned is true.
func orderBy(prefix string, o engine.QueryOptions, versioned bool) string {
	direction := "ASC"
	nulls := "NULLS FIRST"
	if o.Desc {
		direction = "DESC"
		nulls = "NULLS LAST"
	}

	id := fmt.Sprintf("%sid %s", prefix, direction)

	switch {
	case o.OrderBy == engine.OrderByTenantId:
		return fmt.Sprintf("%stenant_id %s %s, %s", prefix, direction, nulls, id)
	case o.OrderBy == engine.OrderByVersion && versioned:
		return fmt.Sprintf("%sversion %s, %s", prefix, direction, id)
	default:
		return id
	}
}

// copied from https://github.com/jackc/pgx/blob/v5.5.0/internal/sanitize/sanitize.go#L90
func quoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// tenantCondition renders the condition of a tenant filter for the given column.
func tenantCondition(column string, f internal.TenantFilter) string {
	var conditions []string

	if f.CheckEnabled {
		var tenantIds []string
		if f.Authenticated {
			tenantIds = f.TenantIds
		}
		conditions = append(conditions, tenantIn(column, tenantIds, true))
	}

	c := f.Criteria
	switch {
	case c.WithoutTenantId:
		conditions = append(conditions, column+" IS NULL")
	case c.TenantIds != nil:
		conditions = append(conditions, tenantIn(column, c.TenantIds, c.IncludeWithoutTenantId))
	}

	if len(conditions) == 0 {
		return "true"
	}
	return strings.Join(conditions, " AND ")
}

func tenantIn(column string, tenantIds []string, withoutTenantId bool) string {
	switch {
	case len(tenantIds) == 0 && withoutTenantId:
		return column + " IS NULL"
	case len(tenantIds) == 0:
		return "false"
	case withoutTenantId:
		return fmt.Sprintf("(%s IS NULL OR %s IN (%s))", column, column, joinString(tenantIds))
	default:
		return fmt.Sprintf("%s IN (%s)", column, joinString(tenantIds))
	}
}

// renderQuery executes a query template with criteria, query options and tenant filter.
func renderQuery(t *template.Template, c any, o engine.QueryOptions, f internal.TenantFilter) (string, error) {
	var sql bytes.Buffer
	if err := t.Execute(&sql, map[string]any{
		"c": c,
		"o": o,
		"f": f,
	}); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %v", t.Name(), err)
	}
	return sql.String(), nil
}
