package commerce

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the lifecycle state of a registered source file
type ProcessingStatus string

const (
	StatusRawUploaded        ProcessingStatus = "raw_uploaded"
	StatusProcessed          ProcessingStatus = "processed"
	StatusErrorProcessing    ProcessingStatus = "error_processing"
	StatusErrorEntityUnknown ProcessingStatus = "error_entity_unknown"
)

// EntityType names the kind of records a source file holds
type EntityType string

const (
	EntityCustomer           EntityType = "customer"
	EntityProduct            EntityType = "product"
	EntityOrderItemsRecon    EntityType = "order_items_reconciliation"
	EntityOrderItemsFreeform EntityType = "order_items_unstructured"
	// EntityOrder is a generic guess refined by file name
	EntityOrder EntityType = "order"
)

// MaxErrorMessageLength bounds the stored error message of a source file
const MaxErrorMessageLength = 1000

// Resolve narrows the generic order guess using the file name
func (e EntityType) Resolve(fileName string) EntityType {
	if e != EntityOrder {
		return e
	}
	if strings.Contains(strings.ToLower(fileName), "recon") {
		return EntityOrderItemsRecon
	}
	return EntityOrderItemsFreeform
}

// IsKnown reports whether the pipeline can process the entity type
func (e EntityType) IsKnown() bool {
	switch e {
	case EntityCustomer, EntityProduct, EntityOrderItemsRecon, EntityOrderItemsFreeform, EntityOrder:
		return true
	}
	return false
}

// ParseEntityType reads a user-supplied entity type
func ParseEntityType(s string) (EntityType, bool) {
	e := EntityType(strings.ToLower(strings.TrimSpace(s)))
	return e, e.IsKnown()
}

// SourceFile is one row of the source file registry
type SourceFile struct {
	ID                     int64
	FileName               string
	FilePath               string
	UploadTimestamp        time.Time
	ProcessingStatus       ProcessingStatus
	EntityTypeGuess        *EntityType
	FileSizeBytes          *int64
	RowCount               *int64
	ColCount               *int64
	DelimiterGuess         *string
	EncodingGuess          *string
	ETLBatchID             *uuid.UUID
	LastProcessedTimestamp *time.Time
	LastProfiledTimestamp  *time.Time
	ErrorMessage           *string
}

// MarkProcessed records a successful run
func (f *SourceFile) MarkProcessed(batchID uuid.UUID, at time.Time) {
	f.ProcessingStatus = StatusProcessed
	f.ETLBatchID = &batchID
	f.LastProcessedTimestamp = &at
	f.ErrorMessage = nil
}

// MarkFailed records a failed run with a bounded error message
func (f *SourceFile) MarkFailed(status ProcessingStatus, msg string, at time.Time) {
	f.ProcessingStatus = status
	f.LastProcessedTimestamp = &at
	msg = TruncateMessage(msg)
	f.ErrorMessage = &msg
}

// TruncateMessage cuts msg to MaxErrorMessageLength runes
func TruncateMessage(msg string) string {
	r := []rune(msg)
	if len(r) <= MaxErrorMessageLength {
		return msg
	}
	return string(r[:MaxErrorMessageLength])
}

// KnownSources maps the file names of the initial exports to their entity type
var KnownSources = map[string]EntityType{
	"customers_messy_data.json":         EntityCustomer,
	"products_inconsistent_data.json":   EntityProduct,
	"orders_unstructured_data.csv":      EntityOrderItemsFreeform,
	"reconciliation_challenge_data.csv": EntityOrderItemsRecon,
}
