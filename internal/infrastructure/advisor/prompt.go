package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/erp/unify/internal/domain/commerce"
)

// Source names one side of a mapping request
type Source struct {
	Name    string   `json:"name" binding:"required"`
	Columns []string `json:"columns" binding:"required,min=1"`
}

// Request asks for mappings of two sources onto a target schema
type Request struct {
	SourceA      Source              `json:"source_a" binding:"required"`
	SourceB      Source              `json:"source_b" binding:"required"`
	TargetSchema map[string][]string `json:"target_schema,omitempty"`
}

// Suggestion maps each source column to "table.column" or NoClearTarget.
// Values stay untyped since an ambiguous column may come back as a list.
type Suggestion struct {
	SourceA map[string]any `json:"source_a_mappings"`
	SourceB map[string]any `json:"source_b_mappings"`
}

// NoClearTarget marks a source column without a plausible mapping
const NoClearTarget = "NO_CLEAR_TARGET"

// DefaultTargetSchema is the unified model
func DefaultTargetSchema() map[string][]string {
	return map[string][]string{
		commerce.TableCustomers:  commerce.CustomerColumns,
		commerce.TableProducts:   commerce.ProductColumns,
		commerce.TableOrders:     commerce.OrderColumns,
		commerce.TableOrderItems: commerce.OrderItemColumns,
	}
}

const promptExample = `{
  "source_a_mappings": {
    "client_ref": "customers.customer_id",
    "purchase_dt": "orders.order_date",
    "weird_legacy_col": "NO_CLEAR_TARGET"
  },
  "source_b_mappings": {
    "CustomerID": "customers.customer_id",
    "productCode": "products.product_id"
  }
}`

// BuildPrompt renders the request. Target tables are listed in name order.
func BuildPrompt(req Request) string {
	target := req.TargetSchema
	if len(target) == 0 {
		target = DefaultTargetSchema()
	}
	var sb strings.Builder
	sb.WriteString("You are a data engineering assistant specializing in schema mapping and reconciliation.\n")
	sb.WriteString("Given the column names of two source datasets and a target canonical schema, suggest the most likely ")
	sb.WriteString("mapping of each source column onto a target table and column. Consider naming conventions, ")
	sb.WriteString("abbreviations and semantic similarity (e.g. 'cust_id' and 'customer_identifier' both map to 'customer_id').\n")

	fmt.Fprintf(&sb, "\n--- Source A ---\nName: %s\nColumns: %s\n", req.SourceA.Name, strings.Join(req.SourceA.Columns, ", "))
	fmt.Fprintf(&sb, "\n--- Source B ---\nName: %s\nColumns: %s\n", req.SourceB.Name, strings.Join(req.SourceB.Columns, ", "))

	sb.WriteString("\n--- Target schema ---\n")
	tables := make([]string, 0, len(target))
	for t := range target {
		tables = append(tables, t)
	}
	slices.Sort(tables)
	for _, t := range tables {
		fmt.Fprintf(&sb, "Table '%s': %s\n", t, strings.Join(target[t], ", "))
	}

	sb.WriteString("\n--- Instructions ---\n")
	fmt.Fprintf(&sb, "1. For '%s', map every column to 'table.column'.\n", req.SourceA.Name)
	fmt.Fprintf(&sb, "2. For '%s', map every column to 'table.column'.\n", req.SourceB.Name)
	fmt.Fprintf(&sb, "3. Use '%s' for a column without a plausible target.\n", NoClearTarget)
	sb.WriteString("4. If a column could map to several targets, give the most probable one.\n")
	sb.WriteString("Answer with a single JSON object and nothing else, in this format:\n")
	sb.WriteString(promptExample)
	sb.WriteString("\n")
	return sb.String()
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON finds the JSON document in a model answer: a fenced block,
// else the span from the first '{' to the last '}', else the trimmed text
func ExtractJSON(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	first, last := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if first >= 0 && last > first {
		return strings.TrimSpace(text[first : last+1])
	}
	return strings.TrimSpace(text)
}

// ErrMalformedAnswer is returned when a model answer holds no usable mapping
var ErrMalformedAnswer = errors.New("advisor answer is not a mapping")

// ParseSuggestion decodes a model answer. An answer without any mapping is an error.
func ParseSuggestion(text string) (*Suggestion, error) {
	var s Suggestion
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}
	if len(s.SourceA) == 0 && len(s.SourceB) == 0 {
		return nil, fmt.Errorf("%w: no mappings", ErrMalformedAnswer)
	}
	return &s, nil
}
