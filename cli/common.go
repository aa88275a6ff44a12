package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gclaussn/go-cmmn/engine"
	"github.com/spf13/cobra"
)

func flagQueryOptions(c *cobra.Command, options *engine.QueryOptions) {
	c.Flags().IntVar(&options.Limit, "limit", 100, "")
	c.Flags().IntVar(&options.Offset, "offset", 0, "")
	c.Flags().Var((*orderByValue)(&options.OrderBy), "order-by", "Property to order by: ID, TENANT_ID or VERSION")
	c.Flags().BoolVar(&options.Desc, "desc", false, "Reverse the order")
}

func flagTenantCriteria(c *cobra.Command, criteria *engine.TenantCriteria) {
	c.Flags().StringSliceVar(&criteria.TenantIds, "tenant-id", nil, "Restrict results to the given tenants")
	c.Flags().BoolVar(&criteria.WithoutTenantId, "without-tenant-id", false, "Restrict results to entities without tenant")
	c.Flags().BoolVar(&criteria.IncludeWithoutTenantId, "include-without-tenant-id", false, "Include entities without tenant, when restricted to tenants")
}

// mapVariables maps variable values, given as strings, to JSON values.
// A value, which is not valid JSON, is treated as string.
func mapVariables(valueMap map[string]string) map[string]any {
	variables := make(map[string]any, len(valueMap))
	for name, value := range valueMap {
		variables[name] = mapValue(value)
	}
	return variables
}

func mapValue(s string) any {
	decoder := json.NewDecoder(strings.NewReader(s))
	decoder.UseNumber()

	var v any
	if err := decoder.Decode(&v); err != nil || decoder.More() {
		return s
	}
	return v
}

func readFile(fileName string) (string, error) {
	b, err := os.ReadFile(fileName)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %v", fileName, err)
	}
	return string(b), nil
}
