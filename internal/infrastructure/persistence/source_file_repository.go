package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/shared"
	"github.com/erp/unify/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSourceFileRepository implements commerce.SourceFileRepository using GORM
type GormSourceFileRepository struct {
	db *gorm.DB
}

// NewGormSourceFileRepository creates a new GormSourceFileRepository
func NewGormSourceFileRepository(db *gorm.DB) *GormSourceFileRepository {
	return &GormSourceFileRepository{db: db}
}

// Save inserts or updates a registry row. A new row whose path is already
// registered replaces that row and takes over its id.
func (r *GormSourceFileRepository) Save(ctx context.Context, f *commerce.SourceFile) error {
	var m models.SourceFileModel
	m.FromDomain(f)

	db := r.db.WithContext(ctx)
	if f.ID == 0 {
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_path"}},
			UpdateAll: true,
		}).Create(&m).Error
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", f.FilePath, err)
		}
		if m.FileID == 0 {
			// some dialects report no id for the updated row
			existing, err := r.FindByPath(ctx, f.FilePath)
			if err != nil {
				return err
			}
			m.FileID = existing.ID
		}
		f.ID = m.FileID
		return nil
	}
	if err := db.Save(&m).Error; err != nil {
		return fmt.Errorf("failed to update source file %d: %w", f.ID, err)
	}
	return nil
}

// FindByID finds a registry row by its id
func (r *GormSourceFileRepository) FindByID(ctx context.Context, id int64) (*commerce.SourceFile, error) {
	var m models.SourceFileModel
	if err := r.db.WithContext(ctx).First(&m, "file_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByPath finds a registry row by its unique file path
func (r *GormSourceFileRepository) FindByPath(ctx context.Context, path string) (*commerce.SourceFile, error) {
	var m models.SourceFileModel
	if err := r.db.WithContext(ctx).Where("file_path = ?", path).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// List returns registry rows, newest upload first unless the filter says otherwise
func (r *GormSourceFileRepository) List(ctx context.Context, filter commerce.FileFilter) ([]commerce.SourceFile, error) {
	query := r.db.WithContext(ctx).Model(&models.SourceFileModel{})
	if filter.Status != "" {
		query = query.Where("processing_status = ?", filter.Status)
	}
	sortField := ValidateSortField(filter.SortBy, SourceFileSortFields, "upload_timestamp")
	sortOrder := ValidateSortOrder(filter.SortOrder)
	query = query.Order(fmt.Sprintf("%s %s", sortField, sortOrder)).Order("file_id " + sortOrder)

	var rows []models.SourceFileModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]commerce.SourceFile, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var _ commerce.SourceFileRepository = (*GormSourceFileRepository)(nil)
