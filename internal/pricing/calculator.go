package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
)

var (
	discountRates = map[domain.PaymentMethod]decimal.Decimal{
		domain.PaymentMethodCash:          decimal.RequireFromString("0.30"),
		domain.PaymentMethodInstallment60: decimal.RequireFromString("0.25"),
		domain.PaymentMethodInstallment90: decimal.RequireFromString("0.25"),
	}

	advanceRate = decimal.RequireFromString("0.25")
)

// Calculator computes invoice totals. Amounts are whole toman; every
// fractional result is floored.
type Calculator struct {
	taxRate decimal.Decimal
}

func NewCalculator(taxRate string) (*Calculator, error) {
	if taxRate == "" {
		taxRate = "0"
	}
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return nil, fmt.Errorf("parsing tax rate %q: %w", taxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate %s out of range [0, 1)", rate)
	}
	return &Calculator{taxRate: rate}, nil
}

func (c *Calculator) Compute(items []domain.LineItem, method domain.PaymentMethod) (domain.Totals, error) {
	rate, ok := discountRates[method]
	if !ok {
		return domain.Totals{}, apperrors.NewValidationError("unknown payment method", apperrors.ValidationDetail{
			Field:   "method",
			Message: fmt.Sprintf("payment method %q is not supported", method),
		})
	}
	if len(items) == 0 {
		return domain.Totals{}, apperrors.NewValidationError("no items to price", apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromInt(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discount := subtotal.Mul(rate).Floor()
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(c.taxRate).Floor()
	grand := taxable.Add(tax)

	totals := domain.Totals{
		Method:     method,
		Subtotal:   subtotal.IntPart(),
		Discount:   discount.IntPart(),
		Tax:        tax.IntPart(),
		GrandTotal: grand.IntPart(),
	}
	if method == domain.PaymentMethodInstallment90 {
		totals.Advance = grand.Mul(advanceRate).Floor().IntPart()
	}

	return totals, nil
}

// Preview prices the items under every supported method, for the invoice
// that offers the three options. Nothing is stored.
func (c *Calculator) Preview(items []domain.LineItem) ([]domain.Totals, error) {
	previews := make([]domain.Totals, 0, len(domain.PaymentMethods))
	for _, m := range domain.PaymentMethods {
		t, err := c.Compute(items, m)
		if err != nil {
			return nil, err
		}
		previews = append(previews, t)
	}
	return previews, nil
}
