package pipeline

import (
	"errors"
	"fmt"

	"github.com/erp/unify/internal/application/aggregate"
	"github.com/erp/unify/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// checkRows validates every row against its struct tags. The first failing
// row is reported as an integrity error.
func checkRows[T any](v *validator.Validate, table string, rows []T) error {
	for i := range rows {
		if err := v.Struct(&rows[i]); err != nil {
			return fmt.Errorf("%s row %d: %s: %w", table, i, describe(err), shared.ErrIntegrity)
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	msg := fmt.Sprintf("field %s failed %q", fe.Field(), fe.Tag())
	if len(verrs) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(verrs)-1)
	}
	return msg
}

// checkAggregate validates orders and items and their referential closure
func checkAggregate(v *validator.Validate, res *aggregate.Result) error {
	if err := checkRows(v, "orders", res.Orders); err != nil {
		return err
	}
	if err := checkRows(v, "order_items", res.Items); err != nil {
		return err
	}
	orphans, empty := aggregate.Verify(res)
	if len(orphans) > 0 {
		return fmt.Errorf("%d order items reference missing orders, first %s: %w", len(orphans), orphans[0], shared.ErrIntegrity)
	}
	if len(empty) > 0 {
		return fmt.Errorf("%d orders have no items, first %s: %w", len(empty), empty[0], shared.ErrIntegrity)
	}
	return nil
}
