package persistence

import (
	"context"
	"fmt"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultBatchSize is the number of rows per INSERT statement
const DefaultBatchSize = 500

// SchemaMigrator applies versioned schema changes
type SchemaMigrator interface {
	Up(ctx context.Context) error
}

// GormStore implements commerce.Store on gorm
type GormStore struct {
	db        *Database
	batchSize int
	migrator  SchemaMigrator
	logger    *zap.Logger
}

// StoreOption configures a GormStore
type StoreOption func(*GormStore)

// WithBatchSize sets the rows per INSERT statement
func WithBatchSize(n int) StoreOption {
	return func(s *GormStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMigrator creates the schema through m instead of AutoMigrate
func WithMigrator(m SchemaMigrator) StoreOption {
	return func(s *GormStore) { s.migrator = m }
}

// WithLogger sets the store logger
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *GormStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewGormStore creates a new GormStore
func NewGormStore(db *Database, opts ...StoreOption) *GormStore {
	s := &GormStore{db: db, batchSize: DefaultBatchSize, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSchema creates every unified table and index. It is idempotent.
func (s *GormStore) CreateSchema(ctx context.Context) error {
	if s.migrator != nil {
		if err := s.migrator.Up(ctx); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
		return nil
	}
	if err := s.db.DB.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.logger.Debug("schema ready", zap.String("driver", s.db.Driver))
	return nil
}

// Reset deletes all unified rows. The source file registry is kept.
func (s *GormStore) Reset(ctx context.Context) error {
	return s.db.Transaction(ctx, func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []any{&models.OrderItemModel{}, &models.OrderModel{}, &models.ProductModel{}, &models.CustomerModel{}} {
			if err := global.Delete(m).Error; err != nil {
				return fmt.Errorf("failed to reset %T: %w", m, err)
			}
		}
		s.logger.Info("unified tables reset")
		return nil
	})
}

// LoadCustomers upserts customers in one transaction
func (s *GormStore) LoadCustomers(ctx context.Context, customers []commerce.Customer) error {
	rows := make([]models.CustomerModel, len(customers))
	for i := range customers {
		rows[i].FromDomain(&customers[i])
	}
	return s.db.Transaction(ctx, func(tx *gorm.DB) error {
		return s.upsert(tx, commerce.TableCustomers, &rows, len(rows), "customer_id")
	})
}

// LoadProducts upserts products in one transaction
func (s *GormStore) LoadProducts(ctx context.Context, products []commerce.Product) error {
	rows := make([]models.ProductModel, len(products))
	for i := range products {
		rows[i].FromDomain(&products[i])
	}
	return s.db.Transaction(ctx, func(tx *gorm.DB) error {
		return s.upsert(tx, commerce.TableProducts, &rows, len(rows), "product_id")
	})
}

// LoadOrders upserts orders and their items in one transaction
func (s *GormStore) LoadOrders(ctx context.Context, orders []commerce.Order, items []commerce.OrderItem) error {
	orderRows := make([]models.OrderModel, len(orders))
	for i := range orders {
		orderRows[i].FromDomain(&orders[i])
	}
	itemRows := make([]models.OrderItemModel, len(items))
	for i := range items {
		itemRows[i].FromDomain(&items[i])
	}
	return s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.upsert(tx, commerce.TableOrders, &orderRows, len(orderRows), "order_id"); err != nil {
			return err
		}
		return s.upsert(tx, commerce.TableOrderItems, &itemRows, len(itemRows), "original_line_identifier")
	})
}

// upsert inserts rows in batches, replacing any row with the same business
// key and source_file_name
func (s *GormStore) upsert(tx *gorm.DB, table string, rows any, n int, businessKey string) error {
	if n == 0 {
		s.logger.Debug("nothing to load", zap.String("table", table))
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: businessKey}, {Name: "source_file_name"}},
		UpdateAll: true,
	}).CreateInBatches(rows, s.batchSize).Error
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", table, err)
	}
	s.logger.Info("rows loaded", zap.String("table", table), zap.Int("rows", n))
	return nil
}

// DistinctValues returns the set of non-null values of a whitelisted column
func (s *GormStore) DistinctValues(ctx context.Context, table, column string) (map[string]struct{}, error) {
	if err := ValidateColumn(table, column); err != nil {
		return nil, err
	}
	var values []string
	if err := s.db.DB.WithContext(ctx).
		Table(table).
		Distinct(column).
		Where(fmt.Sprintf("%s IS NOT NULL", column)).
		Pluck(column, &values).Error; err != nil {
		return nil, fmt.Errorf("failed to read distinct %s.%s: %w", table, column, err)
	}
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out, nil
}

// KnownIDs derives the id snapshot of an incremental run from stored rows.
// Placeholder customer ids are excluded.
func (s *GormStore) KnownIDs(ctx context.Context) (commerce.KnownIDs, error) {
	known := commerce.EmptyKnownIDs()
	db := s.db.DB.WithContext(ctx)

	var customerIDs []string
	if err := db.Model(&models.CustomerModel{}).
		Where("id_is_placeholder = ?", false).
		Distinct("customer_id").
		Pluck("customer_id", &customerIDs).Error; err != nil {
		return known, fmt.Errorf("failed to read known customers: %w", err)
	}
	known.Customers = identity.NewIDSet(customerIDs...)

	var products []productKey
	if err := db.Model(&models.ProductModel{}).
		Select("product_id", "source_item_id_int").
		Order("record_id").
		Find(&products).Error; err != nil {
		return known, fmt.Errorf("failed to read known products: %w", err)
	}
	for _, p := range products {
		if p.ProductID == "" {
			continue
		}
		known.Products[p.ProductID] = struct{}{}
		known.Remap.Record(p.ProductID, p.SourceItemIDInt)
	}
	return known, nil
}

type productKey struct {
	ProductID       string
	SourceItemIDInt *int64
}

var _ commerce.Store = (*GormStore)(nil)
