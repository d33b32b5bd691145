package etl

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/domain/normalize"
	"github.com/erp/unify/internal/domain/vocab"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var dimensionSep = regexp.MustCompile(`[xX]`)

// ProductTable is the cleaned output of one product batch
type ProductTable struct {
	Rows []commerce.Product
	IDs  identity.IDSet
	// Remap resolves raw numeric item ids of this batch to product ids
	Remap   identity.Remap
	Dropped int
}

// ProductCleaner turns raw product batches into canonical products
type ProductCleaner struct {
	deps          Deps
	aliases       ProductAliases
	canonicalizer *identity.Canonicalizer
}

// NewProductCleaner creates a ProductCleaner. Product ids are kept verbatim.
func NewProductCleaner(deps Deps, aliases ProductAliases) *ProductCleaner {
	return &ProductCleaner{
		deps:          deps.WithDefaults(),
		aliases:       aliases,
		canonicalizer: identity.NewVerbatimCanonicalizer(),
	}
}

// Run cleans b. Rows without a product id are dropped.
func (c *ProductCleaner) Run(ctx context.Context, b *batch.Batch, source string) *ProductTable {
	log := c.deps.Logger.With(zap.String("source_file", source), zap.String("entity", "product"))
	out := &ProductTable{IDs: identity.IDSet{}, Remap: identity.Remap{}}
	if b.IsEmpty() {
		log.Warn("raw product batch is empty, skipping")
		return out
	}
	log.Info("cleaning products", zap.Int("rows", b.Len()))
	logColumns(log, "product", b.Columns, c.aliases.Fields())

	now := c.deps.Clock()
	rows := make([]commerce.Product, 0, b.Len())
	for i, raw := range b.Rows {
		if ctx.Err() != nil {
			break
		}
		p := c.cleanRow(raw, b.Token, i, source, now)
		if p.ProductID == "" {
			continue
		}
		out.Remap.Record(p.ProductID, p.SourceItemIDInt)
		rows = append(rows, p)
	}
	if len(rows) == 0 {
		log.Warn("no products with a usable id after cleaning")
		out.Dropped = b.Len()
		return out
	}

	out.Rows = identity.Dedup(rows,
		func(r commerce.Product) string { return r.ProductID },
		func(r commerce.Product) *int64 { return r.SourceItemIDInt },
	)
	out.Dropped = b.Len() - len(out.Rows)
	for _, r := range out.Rows {
		out.IDs.Add(identity.Canonical(r.ProductID))
	}
	log.Info("products cleaned",
		zap.Int("rows_in", b.Len()),
		zap.Int("rows_out", len(out.Rows)),
		zap.Int("rows_dropped", out.Dropped),
		zap.Int("remap_entries", len(out.Remap)),
	)
	return out
}

func (c *ProductCleaner) cleanRow(raw batch.Row, token string, idx int, source string, now time.Time) commerce.Product {
	n, a := c.deps.Normalizer, c.aliases

	id := c.canonicalizer.Canonicalize(a.ID.Values(raw), nil, token, idx)
	length, width, height := ParseDimensions(n, a.Dimensions.Extract(raw))

	return commerce.Product{
		ProductID:                id.String(),
		SourceFileName:           source,
		ProductName:              n.Text(a.Name.Extract(raw), normalize.CaseTitle).Ptr(),
		Description:              n.Text(a.Description.Extract(raw), normalize.CaseNone).Or(commerce.DefaultDescription),
		Category:                 n.Text(a.Category.Extract(raw), normalize.CaseTitle).Or(vocab.Unknown),
		Brand:                    n.Text(a.Brand.Extract(raw), normalize.CaseUpper).Or(vocab.Unknown),
		Manufacturer:             n.Text(a.Manufacturer.Extract(raw), normalize.CaseUpper).Or(vocab.Unknown),
		Price:                    decimal.NewFromFloat(n.Number(a.Price.Extract(raw)).Or(0)),
		Cost:                     decimal.NewFromFloat(n.Number(a.Cost.Extract(raw)).Or(0)),
		WeightKg:                 n.Number(a.Weight.Extract(raw)).Ptr(),
		DimLengthCm:              length,
		DimWidthCm:               width,
		DimHeightCm:              height,
		Color:                    n.Text(a.Color.Extract(raw), normalize.CaseTitle).Or(vocab.Unknown),
		Size:                     n.Text(a.Size.Extract(raw), normalize.CaseUpper).Or(commerce.DefaultSize),
		StockQuantity:            n.Integer(a.Stock.Extract(raw)).Or(0),
		ReorderLevel:             n.Integer(a.ReorderLevel.Extract(raw)).Or(0),
		SupplierID:               n.Text(a.SupplierID.Extract(raw), normalize.CaseUpper).Or(vocab.Unknown),
		IsActive:                 n.Boolean(a.IsActive.Extract(raw)).Ptr(),
		Rating:                   n.Number(a.Rating.Extract(raw)).Ptr(),
		ProductCreatedDate:       n.Date(a.CreatedDate.Extract(raw)).Ptr(),
		ProductLastUpdatedSource: n.Timestamp(a.LastUpdated.Extract(raw)).Ptr(),
		SourceItemIDInt:          n.Integer(a.SourceItemID.Extract(raw)).Ptr(),
		LastUpdatedPipeline:      now,
	}
}

// ParseDimensions splits an "LxWxH" string. Anything but three parts yields nils.
func ParseDimensions(n *normalize.Normalizer, raw any) (length, width, height *float64) {
	s := n.Text(raw, normalize.CaseNone)
	if !s.Valid {
		return nil, nil, nil
	}
	parts := dimensionSep.Split(s.Value, -1)
	if len(parts) != 3 {
		return nil, nil, nil
	}
	dim := func(p string) *float64 {
		return n.Number(strings.TrimSpace(p)).Ptr()
	}
	return dim(parts[0]), dim(parts[1]), dim(parts[2])
}
