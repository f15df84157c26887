package cart

import (
	"time"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/pkg/types"
	"github.com/shopspring/decimal"
)

// DeliveryEstimate is how far out the confirmation view promises delivery.
const DeliveryEstimate = 5 * 24 * time.Hour

// Rates are the display-only estimate rates applied to the subtotal.
type Rates struct {
	Discount decimal.Decimal
	Tax      decimal.Decimal
}

// DefaultRates returns 10% discount and 5% tax.
func DefaultRates() Rates {
	return Rates{
		Discount: decimal.RequireFromString("0.10"),
		Tax:      decimal.RequireFromString("0.05"),
	}
}

// Totals is the cart summary. It is an estimate; the order total the backend
// returns is authoritative.
type Totals struct {
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
	ItemCount  int
}

// ComputeTotals is pure: grand total = subtotal - discount + tax, each
// rounded to cents.
func ComputeTotals(lines []api.CartLine, rates Rates) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
		count += line.Quantity
	}
	subtotal = types.RoundMoney(subtotal)
	discount := types.RoundMoney(subtotal.Mul(rates.Discount))
	tax := types.RoundMoney(subtotal.Mul(rates.Tax))
	return Totals{
		Subtotal:   subtotal,
		Discount:   discount,
		Tax:        tax,
		GrandTotal: subtotal.Sub(discount).Add(tax),
		ItemCount:  count,
	}
}

// EstimatedDelivery is the date shown on the order confirmation.
func EstimatedDelivery(now time.Time) time.Time {
	return now.Add(DeliveryEstimate)
}
