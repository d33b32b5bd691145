package models

import (
	"time"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/google/uuid"
)

// SourceFileModel is one row of the source file registry
type SourceFileModel struct {
	FileID                 int64                     `gorm:"column:file_id;primaryKey;autoIncrement"`
	FileName               string                    `gorm:"type:varchar(255);not null;index"`
	FilePath               string                    `gorm:"type:varchar(1024);not null;uniqueIndex"`
	UploadTimestamp        time.Time                 `gorm:"not null"`
	ProcessingStatus       commerce.ProcessingStatus `gorm:"type:varchar(50);not null;index"`
	EntityTypeGuess        *string                   `gorm:"type:varchar(50);index"`
	FileSizeBytes          *int64
	RowCount               *int64
	ColCount               *int64
	DelimiterGuess         *string `gorm:"type:varchar(8)"`
	EncodingGuess          *string `gorm:"type:varchar(50)"`
	ETLBatchID             *string `gorm:"column:etl_batch_id;type:varchar(36)"`
	LastProcessedTimestamp *time.Time
	LastProfiledTimestamp  *time.Time
	ErrorMessage           *string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SourceFileModel) TableName() string {
	return commerce.TableRegistry
}

// ToDomain converts the model to a domain SourceFile. A malformed batch id is dropped.
func (m *SourceFileModel) ToDomain() *commerce.SourceFile {
	f := &commerce.SourceFile{
		ID:                     m.FileID,
		FileName:               m.FileName,
		FilePath:               m.FilePath,
		UploadTimestamp:        m.UploadTimestamp,
		ProcessingStatus:       m.ProcessingStatus,
		FileSizeBytes:          m.FileSizeBytes,
		RowCount:               m.RowCount,
		ColCount:               m.ColCount,
		DelimiterGuess:         m.DelimiterGuess,
		EncodingGuess:          m.EncodingGuess,
		LastProcessedTimestamp: m.LastProcessedTimestamp,
		LastProfiledTimestamp:  m.LastProfiledTimestamp,
		ErrorMessage:           m.ErrorMessage,
	}
	if m.EntityTypeGuess != nil {
		e := commerce.EntityType(*m.EntityTypeGuess)
		f.EntityTypeGuess = &e
	}
	if m.ETLBatchID != nil {
		if id, err := uuid.Parse(*m.ETLBatchID); err == nil {
			f.ETLBatchID = &id
		}
	}
	return f
}

// FromDomain populates the model from a domain SourceFile
func (m *SourceFileModel) FromDomain(f *commerce.SourceFile) {
	m.FileID = f.ID
	m.FileName = f.FileName
	m.FilePath = f.FilePath
	m.UploadTimestamp = f.UploadTimestamp
	m.ProcessingStatus = f.ProcessingStatus
	m.EntityTypeGuess = nil
	if f.EntityTypeGuess != nil {
		s := string(*f.EntityTypeGuess)
		m.EntityTypeGuess = &s
	}
	m.FileSizeBytes = f.FileSizeBytes
	m.RowCount = f.RowCount
	m.ColCount = f.ColCount
	m.DelimiterGuess = f.DelimiterGuess
	m.EncodingGuess = f.EncodingGuess
	m.ETLBatchID = nil
	if f.ETLBatchID != nil {
		s := f.ETLBatchID.String()
		m.ETLBatchID = &s
	}
	m.LastProcessedTimestamp = f.LastProcessedTimestamp
	m.LastProfiledTimestamp = f.LastProfiledTimestamp
	m.ErrorMessage = f.ErrorMessage
}

// All returns every model of the unified schema in creation order
func All() []any {
	return []any{
		&CustomerModel{},
		&ProductModel{},
		&OrderModel{},
		&OrderItemModel{},
		&SourceFileModel{},
	}
}
