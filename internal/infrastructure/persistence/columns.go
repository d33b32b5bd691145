package persistence

import (
	"fmt"
	"strings"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/shared"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, else defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// SourceFileSortFields contains allowed sort fields of the registry listing
var SourceFileSortFields = map[string]bool{
	"file_id":                  true,
	"file_name":                true,
	"upload_timestamp":         true,
	"processing_status":        true,
	"entity_type_guess":        true,
	"row_count":                true,
	"last_processed_timestamp": true,
}

// queryableColumns lists, per table, the columns DistinctValues may read
var queryableColumns = map[string]map[string]bool{
	commerce.TableCustomers:  columnSet(commerce.CustomerColumns, "id_is_placeholder"),
	commerce.TableProducts:   columnSet(commerce.ProductColumns),
	commerce.TableOrders:     columnSet(commerce.OrderColumns),
	commerce.TableOrderItems: columnSet(commerce.OrderItemColumns),
}

func columnSet(cols []string, extra ...string) map[string]bool {
	out := make(map[string]bool, len(cols)+len(extra))
	for _, c := range cols {
		out[c] = true
	}
	for _, c := range extra {
		out[c] = true
	}
	return out
}

// ValidateColumn rejects any table or column outside the unified schema
func ValidateColumn(table, column string) error {
	cols, ok := queryableColumns[table]
	if !ok {
		return shared.NewDomainError("INVALID_TABLE", fmt.Sprintf("unknown table %q", table))
	}
	if !cols[column] {
		return shared.NewDomainError("INVALID_COLUMN", fmt.Sprintf("unknown column %q of table %s", column, table))
	}
	return nil
}
