package etl

import (
	"context"
	"sort"
	"time"

	"github.com/erp/unify/internal/domain/batch"
	"github.com/erp/unify/internal/domain/commerce"
	"github.com/erp/unify/internal/domain/identity"
	"github.com/erp/unify/internal/domain/normalize"
	"github.com/erp/unify/internal/domain/vocab"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerTable is the cleaned output of one customer batch
type CustomerTable struct {
	Rows []commerce.Customer
	// IDs holds the canonical ids of Rows; placeholders are excluded
	IDs          identity.IDSet
	Placeholders int
	Dropped      int
}

// CustomerCleaner turns raw customer batches into canonical customers
type CustomerCleaner struct {
	deps          Deps
	aliases       CustomerAliases
	canonicalizer *identity.Canonicalizer
}

// NewCustomerCleaner creates a CustomerCleaner
func NewCustomerCleaner(deps Deps, canonicalizer *identity.Canonicalizer, aliases CustomerAliases) *CustomerCleaner {
	if canonicalizer == nil {
		canonicalizer = identity.NewCustomerCanonicalizer(identity.CustomerPrefix, identity.DefaultPadWidth)
	}
	return &CustomerCleaner{
		deps:          deps.WithDefaults(),
		aliases:       aliases,
		canonicalizer: canonicalizer,
	}
}

// Run cleans b. An empty batch yields an empty table.
func (c *CustomerCleaner) Run(ctx context.Context, b *batch.Batch, source string) *CustomerTable {
	log := c.deps.Logger.With(zap.String("source_file", source), zap.String("entity", "customer"))
	out := &CustomerTable{IDs: identity.IDSet{}}
	if b.IsEmpty() {
		log.Warn("raw customer batch is empty, skipping")
		return out
	}
	log.Info("cleaning customers", zap.Int("rows", b.Len()))
	logColumns(log, "customer", b.Columns, c.aliases.Fields())

	now := c.deps.Clock()
	rows := make([]commerce.Customer, 0, b.Len())
	for i, raw := range b.Rows {
		if ctx.Err() != nil {
			break
		}
		rows = append(rows, c.cleanRow(raw, b.Token, i, source, now))
	}

	kept := identity.Dedup(rows,
		func(r commerce.Customer) string { return r.CustomerID },
		func(r commerce.Customer) *int64 { return r.SourceCustomerIDInt },
	)
	if len(kept) == 0 {
		log.Warn("no customers with a usable id after cleaning")
		out.Dropped = len(rows)
		return out
	}
	kept = dedupByEmail(kept)

	out.Rows = kept
	out.Dropped = len(rows) - len(kept)
	for _, r := range kept {
		if r.IDIsPlaceholder {
			out.Placeholders++
			continue
		}
		out.IDs.Add(identity.Canonical(r.CustomerID))
	}
	log.Info("customers cleaned",
		zap.Int("rows_in", b.Len()),
		zap.Int("rows_out", len(out.Rows)),
		zap.Int("duplicates_dropped", out.Dropped),
		zap.Int("placeholder_ids", out.Placeholders),
	)
	return out
}

func (c *CustomerCleaner) cleanRow(raw batch.Row, token string, idx int, source string, now time.Time) commerce.Customer {
	n, v, a := c.deps.Normalizer, c.deps.Vocabulary, c.aliases

	sourceID, hasSourceID := identity.NumericSourceID(a.NumericID.Values(raw)...)
	var numericFallback []any
	if hasSourceID {
		numericFallback = []any{sourceID}
	}
	id := c.canonicalizer.Canonicalize(a.ID.Values(raw), numericFallback, token, idx)

	birth := n.Date(a.BirthDate.Extract(raw))
	cust := commerce.Customer{
		CustomerID:             id.String(),
		IDIsPlaceholder:        id.IsPlaceholder(),
		SourceFileName:         source,
		CustomerName:           n.Text(a.Name.Extract(raw), normalize.CaseTitle).Ptr(),
		Email:                  n.Text(a.Email.Extract(raw), normalize.CaseLower).Ptr(),
		Phone:                  n.Phone(a.Phone.Extract(raw)).Ptr(),
		AddressStreet:          n.Text(a.Street.Extract(raw), normalize.CaseTitle).Ptr(),
		AddressCity:            v.City(a.City.Extract(raw)),
		AddressState:           v.State(a.State.Extract(raw)),
		AddressPostalCode:      n.PostalCode(a.PostalCode.Extract(raw)).Ptr(),
		RegistrationDate:       n.Date(a.RegistrationDate.Extract(raw)).Ptr(),
		Status:                 v.Lookup(a.Status.Extract(raw), vocab.TableCustomerStatus, vocab.Unknown),
		TotalOrders:            n.Integer(a.TotalOrders.Extract(raw)).Or(0),
		TotalSpent:             decimal.NewFromFloat(n.Number(a.TotalSpent.Extract(raw)).Or(0)),
		LoyaltyPoints:          n.Integer(a.LoyaltyPoints.Extract(raw)).Or(0),
		PreferredPaymentMethod: n.Text(a.PreferredPayment.Extract(raw), normalize.CaseLower).Or(vocab.Unknown),
		BirthDate:              birth.Ptr(),
		Gender:                 v.Lookup(a.Gender.Extract(raw), vocab.TableGender, vocab.Unknown),
		Segment:                n.Text(a.Segment.Extract(raw), normalize.CaseUpper).Or(vocab.Unknown),
		LastUpdatedPipeline:    now,
	}
	if hasSourceID {
		cust.SourceCustomerIDInt = &sourceID
	}
	if birth.Valid {
		cust.Age = AgeAt(birth.Value, now)
	}
	if cust.Age == nil {
		cust.Age = n.Integer(a.Age.Extract(raw)).Ptr()
	}
	return cust
}

// AgeAt returns whole years between birth and now, nil when birth is in the future
func AgeAt(birth, now time.Time) *int64 {
	years := int64(now.Year() - birth.Year())
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return nil
	}
	return &years
}

// dedupByEmail keeps the first customer per non-empty email after sorting by
// (email, customer id). Customers without an email pass through.
func dedupByEmail(rows []commerce.Customer) []commerce.Customer {
	var withEmail, without []commerce.Customer
	for _, r := range rows {
		if r.HasEmail() {
			withEmail = append(withEmail, r)
		} else {
			without = append(without, r)
		}
	}
	sort.SliceStable(withEmail, func(i, j int) bool {
		ei, ej := *withEmail[i].Email, *withEmail[j].Email
		if ei != ej {
			return ei < ej
		}
		return withEmail[i].CustomerID < withEmail[j].CustomerID
	})
	out := make([]commerce.Customer, 0, len(rows))
	seen := make(map[string]struct{}, len(withEmail))
	for _, r := range withEmail {
		if _, dup := seen[*r.Email]; dup {
			continue
		}
		seen[*r.Email] = struct{}{}
		out = append(out, r)
	}
	return append(out, without...)
}
