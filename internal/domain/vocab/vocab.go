// Package vocab maps free-text categorical values onto canonical labels.
package vocab

import (
	"strings"

	"github.com/erp/unify/internal/domain/normalize"
)

// Unknown is the generic fallback label
const Unknown = "UNKNOWN"

// Table identifies one categorical lookup table
type Table string

const (
	TableGender         Table = "gender"
	TableCustomerStatus Table = "customer_status"
	TablePaymentStatus  Table = "payment_status"
	TableDeliveryStatus Table = "delivery_status"
	TableState          Table = "state"
	TableCity           Table = "city"
)

// Tables lists every known table
var Tables = []Table{
	TableGender, TableCustomerStatus, TablePaymentStatus,
	TableDeliveryStatus, TableState, TableCity,
}

// Vocabulary is an immutable set of lookup tables keyed by uppercase input
type Vocabulary struct {
	tables map[Table]map[string]string
	norm   *normalize.Normalizer
}

// New builds a Vocabulary from raw tables. Keys are cleaned and uppercased.
func New(tables map[Table]map[string]string) *Vocabulary {
	v := &Vocabulary{
		tables: make(map[Table]map[string]string, len(tables)),
		norm:   normalize.New(),
	}
	for name, entries := range tables {
		v.tables[name] = v.copyEntries(nil, entries)
	}
	return v
}

// Default returns the built-in vocabulary
func Default() *Vocabulary {
	return New(defaultTables())
}

// Extend returns a new Vocabulary with extra entries layered over v.
// v itself is left untouched.
func (v *Vocabulary) Extend(extra map[Table]map[string]string) *Vocabulary {
	out := &Vocabulary{
		tables: make(map[Table]map[string]string, len(v.tables)+len(extra)),
		norm:   v.norm,
	}
	for name, entries := range v.tables {
		out.tables[name] = v.copyEntries(nil, entries)
	}
	for name, entries := range extra {
		out.tables[name] = v.copyEntries(out.tables[name], entries)
	}
	return out
}

func (v *Vocabulary) copyEntries(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, label := range src {
		dst[v.key(k)] = label
	}
	return dst
}

func (v *Vocabulary) key(raw any) string {
	return v.norm.CleanString(raw, normalize.CaseUpper).Or("")
}

// Lookup maps value through table. Blank input and misses yield def.
func (v *Vocabulary) Lookup(value any, table Table, def string) string {
	key := v.key(value)
	if key == "" {
		return def
	}
	if label, ok := v.tables[table][key]; ok {
		return label
	}
	return def
}

// Has reports whether the table maps the value
func (v *Vocabulary) Has(value any, table Table) bool {
	_, ok := v.tables[table][v.key(value)]
	return ok
}

// City normalises a city name. Unmapped names are title-cased.
func (v *Vocabulary) City(value any) string {
	key := v.key(value)
	if key == "" {
		return Unknown
	}
	if label, ok := v.tables[TableCity][key]; ok {
		return label
	}
	return v.norm.CleanString(strings.ToLower(key), normalize.CaseTitle).Or(Unknown)
}

// State abbreviates a state name. Unmapped names keep their cleaned uppercase form.
func (v *Vocabulary) State(value any) string {
	key := v.key(value)
	if key == "" {
		return Unknown
	}
	if label, ok := v.tables[TableState][key]; ok {
		return label
	}
	return key
}

// Size returns the number of entries of a table
func (v *Vocabulary) Size(table Table) int {
	return len(v.tables[table])
}
