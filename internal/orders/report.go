package orders

import (
	"context"
	"sort"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/types"
	"github.com/shopspring/decimal"
)

// ProductSales aggregates one product across paid deliveries.
type ProductSales struct {
	ProductID string
	Name      string
	Quantity  int
	Revenue   decimal.Decimal
}

// SalesReport summarises a seller's delivered orders. Only orders that are
// both delivered and paid count toward revenue.
type SalesReport struct {
	Revenue      decimal.Decimal
	ItemsSold    int
	PaidOrders   []api.Order
	UnpaidOrders []api.Order
	ByProduct    []ProductSales
}

// Empty reports whether there are no delivered orders at all.
func (r SalesReport) Empty() bool {
	return len(r.PaidOrders) == 0 && len(r.UnpaidOrders) == 0
}

// BuildSalesReport is pure. Line revenue uses the price at purchase, or the
// product price when the order did not record one. Products are ordered by
// revenue, highest first.
func BuildSalesReport(list []api.Order) SalesReport {
	report := SalesReport{
		Revenue:      decimal.Zero,
		PaidOrders:   []api.Order{},
		UnpaidOrders: []api.Order{},
		ByProduct:    []ProductSales{},
	}
	index := map[string]int{}

	for _, order := range list {
		if order.Status != enums.OrderStatusDelivered {
			continue
		}
		if !order.IsPaid() {
			report.UnpaidOrders = append(report.UnpaidOrders, order)
			continue
		}
		report.PaidOrders = append(report.PaidOrders, order)
		for _, item := range order.Items {
			revenue := item.UnitPrice().Mul(decimal.NewFromInt(int64(item.Quantity)))
			report.Revenue = report.Revenue.Add(revenue)
			report.ItemsSold += item.Quantity

			key := item.Product.ID
			if key == "" {
				key = item.Product.Name()
			}
			i, ok := index[key]
			if !ok {
				i = len(report.ByProduct)
				index[key] = i
				report.ByProduct = append(report.ByProduct, ProductSales{ProductID: item.Product.ID, Name: item.Product.Name(), Revenue: decimal.Zero})
			}
			report.ByProduct[i].Quantity += item.Quantity
			report.ByProduct[i].Revenue = report.ByProduct[i].Revenue.Add(revenue)
		}
	}

	report.Revenue = types.RoundMoney(report.Revenue)
	sort.SliceStable(report.ByProduct, func(a, b int) bool {
		return report.ByProduct[a].Revenue.GreaterThan(report.ByProduct[b].Revenue)
	})
	return report
}

// SalesReport loads the seller's orders and summarises them.
func (v *View) SalesReport(ctx context.Context) (SalesReport, error) {
	if v.role != enums.RoleSeller {
		return SalesReport{}, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers have a sales report")
	}
	if _, err := v.Load(ctx); err != nil {
		return SalesReport{}, err
	}
	return BuildSalesReport(v.State().Orders), nil
}
