package dto

import (
	"time"

	"github.com/erp/unify/internal/application/pipeline"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/google/uuid"
)

// RunRequest starts a full run. Empty paths fall back to the configured sources.
type RunRequest struct {
	Customers      string `json:"customers"`
	Products       string `json:"products"`
	Reconciliation string `json:"reconciliation"`
	Unstructured   string `json:"unstructured"`
}

// Apply overlays the non-empty paths of the request on base
func (r RunRequest) Apply(base pipeline.Sources) pipeline.Sources {
	if r.Customers != "" {
		base.Customers = r.Customers
	}
	if r.Products != "" {
		base.Products = r.Products
	}
	if r.Reconciliation != "" {
		base.Reconciliation = r.Reconciliation
	}
	if r.Unstructured != "" {
		base.Unstructured = r.Unstructured
	}
	return base
}

// RegisterFileRequest registers a raw file by path or object URL
type RegisterFileRequest struct {
	Path       string `json:"path" binding:"required,max=1024"`
	EntityType string `json:"entity_type" binding:"omitempty,oneof=customer product order order_items_reconciliation order_items_unstructured"`
}

// ProcessFileRequest optionally overrides the registered entity guess
type ProcessFileRequest struct {
	EntityType string `json:"entity_type" binding:"omitempty,oneof=customer product order order_items_reconciliation order_items_unstructured"`
}

// ListFilesQuery filters and orders the registry listing
type ListFilesQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=raw_uploaded processed error_processing error_entity_unknown"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=file_id file_name upload_timestamp processing_status entity_type_guess row_count last_processed_timestamp"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// Filter converts the query to a registry filter
func (q ListFilesQuery) Filter() commerce.FileFilter {
	return commerce.FileFilter{
		Status:    commerce.ProcessingStatus(q.Status),
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
}

// SourceFileResponse is one registry row
type SourceFileResponse struct {
	ID                     int64      `json:"file_id"`
	FileName               string     `json:"file_name"`
	FilePath               string     `json:"file_path"`
	UploadTimestamp        time.Time  `json:"upload_timestamp"`
	ProcessingStatus       string     `json:"processing_status"`
	EntityTypeGuess        string     `json:"entity_type_guess,omitempty"`
	FileSizeBytes          *int64     `json:"file_size_bytes,omitempty"`
	RowCount               *int64     `json:"row_count,omitempty"`
	ColCount               *int64     `json:"col_count,omitempty"`
	DelimiterGuess         *string    `json:"delimiter_guess,omitempty"`
	EncodingGuess          *string    `json:"encoding_guess,omitempty"`
	ETLBatchID             *uuid.UUID `json:"etl_batch_id,omitempty"`
	LastProcessedTimestamp *time.Time `json:"last_processed_timestamp,omitempty"`
	LastProfiledTimestamp  *time.Time `json:"last_profiled_timestamp,omitempty"`
	ErrorMessage           *string    `json:"error_message,omitempty"`
}

// ToSourceFileResponse converts a registry row
func ToSourceFileResponse(f *commerce.SourceFile) SourceFileResponse {
	resp := SourceFileResponse{
		ID:                     f.ID,
		FileName:               f.FileName,
		FilePath:               f.FilePath,
		UploadTimestamp:        f.UploadTimestamp,
		ProcessingStatus:       string(f.ProcessingStatus),
		FileSizeBytes:          f.FileSizeBytes,
		RowCount:               f.RowCount,
		ColCount:               f.ColCount,
		DelimiterGuess:         f.DelimiterGuess,
		EncodingGuess:          f.EncodingGuess,
		ETLBatchID:             f.ETLBatchID,
		LastProcessedTimestamp: f.LastProcessedTimestamp,
		LastProfiledTimestamp:  f.LastProfiledTimestamp,
		ErrorMessage:           f.ErrorMessage,
	}
	if f.EntityTypeGuess != nil {
		resp.EntityTypeGuess = string(*f.EntityTypeGuess)
	}
	return resp
}

// ToSourceFileResponses converts a registry listing
func ToSourceFileResponses(files []commerce.SourceFile) []SourceFileResponse {
	out := make([]SourceFileResponse, len(files))
	for i := range files {
		out[i] = ToSourceFileResponse(&files[i])
	}
	return out
}
