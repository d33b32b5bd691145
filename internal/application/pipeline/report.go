package pipeline

import (
	"time"

	"github.com/erp/unify/internal/domain/commerce"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceReport counts what one source file contributed to a run
type SourceReport struct {
	Name      string              `json:"name"`
	Entity    commerce.EntityType `json:"entity"`
	RowsIn    int                 `json:"rows_in"`
	RowsOut   int                 `json:"rows_out"`
	Dropped   int                 `json:"dropped"`
	LoadError string              `json:"load_error,omitempty"`
}

// RunReport summarises a full run
type RunReport struct {
	RunID         string         `json:"run_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Sources       []SourceReport `json:"sources"`
	Customers     int            `json:"customers"`
	Products      int            `json:"products"`
	Orders        int            `json:"orders"`
	OrderItems    int            `json:"order_items"`
	DroppedOrders int            `json:"dropped_orders"`
	DroppedItems  int            `json:"dropped_items"`

	// OrdersNetTotal is the net value of the orders loaded by the run
	OrdersNetTotal decimal.Decimal `json:"orders_net_total"`
}

func (r *RunReport) add(s SourceReport) {
	r.Sources = append(r.Sources, s)
}

// FileResult is the outcome of processing one registered file
type FileResult struct {
	FileID     int64                     `json:"file_id"`
	FileName   string                    `json:"file_name"`
	Entity     commerce.EntityType       `json:"entity,omitempty"`
	Status     commerce.ProcessingStatus `json:"status"`
	Message    string                    `json:"message"`
	BatchID    *uuid.UUID                `json:"batch_id,omitempty"`
	Source     *SourceReport             `json:"source,omitempty"`
	Orders     int                       `json:"orders,omitempty"`
	OrderItems int                       `json:"order_items,omitempty"`
}

// Succeeded reports whether the file reached the processed status
func (f *FileResult) Succeeded() bool {
	return f.Status == commerce.StatusProcessed
}
