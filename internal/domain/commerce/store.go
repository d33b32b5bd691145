package commerce

import (
	"context"

	"github.com/erp/unify/internal/domain/identity"
)

// Table names of the unified model
const (
	TableCustomers  = "customers"
	TableProducts   = "products"
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableRegistry   = "source_file_registry"
)

// KnownIDs is the snapshot of canonical ids a resolution stage runs against
type KnownIDs struct {
	Customers identity.IDSet
	Products  identity.IDSet
	Remap     identity.Remap
}

// EmptyKnownIDs returns an empty snapshot
func EmptyKnownIDs() KnownIDs {
	return KnownIDs{
		Customers: identity.IDSet{},
		Products:  identity.IDSet{},
		Remap:     identity.Remap{},
	}
}

// Store persists the unified model.
// Each load call is one transaction: it either stores every row or none.
type Store interface {
	CreateSchema(ctx context.Context) error
	Reset(ctx context.Context) error
	LoadCustomers(ctx context.Context, customers []Customer) error
	LoadProducts(ctx context.Context, products []Product) error
	LoadOrders(ctx context.Context, orders []Order, items []OrderItem) error
	DistinctValues(ctx context.Context, table, column string) (map[string]struct{}, error)
	KnownIDs(ctx context.Context) (KnownIDs, error)
}

// SourceFileRepository persists the source file registry
type SourceFileRepository interface {
	Save(ctx context.Context, f *SourceFile) error
	FindByID(ctx context.Context, id int64) (*SourceFile, error)
	FindByPath(ctx context.Context, path string) (*SourceFile, error)
	List(ctx context.Context, filter FileFilter) ([]SourceFile, error)
}

// FileFilter narrows and orders a registry listing
type FileFilter struct {
	Status    ProcessingStatus
	SortBy    string
	SortOrder string
}
