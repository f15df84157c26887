package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/orders"
	"github.com/angelmondragon/storefront-client/pkg/pagination"
	"github.com/angelmondragon/storefront-client/pkg/types"
)

const dateLayout = "Jan 2, 2006"

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

func renderProducts(out io.Writer, items []api.Product) {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "No products found")
		return
	}
	tw := newTable(out)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tPRICE\tRATING\tSTOCK\tCATEGORY")
	for _, p := range items {
		stock := "out of stock"
		if p.InStock() {
			stock = fmt.Sprintf("%d", p.Stock)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s (%d)\t%s\t%s\n", p.ID, p.Name, p.PriceLabel(), p.Stars(), p.NumReviews, stock, p.Category)
	}
	_ = tw.Flush()
}

func renderProduct(out io.Writer, p api.Product) {
	_, _ = fmt.Fprintf(out, "%s  %s\n", p.Name, p.PriceLabel())
	_, _ = fmt.Fprintf(out, "%s %.1f (%d reviews)\n", p.Stars(), p.AverageRating, p.NumReviews)
	if p.Category != "" {
		_, _ = fmt.Fprintf(out, "Category: %s\n", p.Category)
	}
	if p.Seller.Name != "" {
		_, _ = fmt.Fprintf(out, "Sold by: %s\n", p.Seller.Name)
	}
	if p.InStock() {
		_, _ = fmt.Fprintf(out, "In stock: %d\n", p.Stock)
	} else {
		_, _ = fmt.Fprintln(out, "Out of stock")
	}
	if cover := p.Cover(); cover != "" {
		_, _ = fmt.Fprintf(out, "Image: %s\n", cover)
	}
	if p.Description != "" {
		_, _ = fmt.Fprintf(out, "\n%s\n", p.Description)
	}
	if len(p.Reviews) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nReviews")
	for _, r := range p.Reviews {
		name := r.Name
		if name == "" {
			name = r.User.Name
		}
		_, _ = fmt.Fprintf(out, "  %s %s: %s\n", types.Stars(float64(r.Rating)), name, r.Comment)
	}
}

func renderPager(out io.Writer, p pagination.Pager) {
	if p.TotalPages <= pagination.MinPage {
		return
	}
	_, _ = fmt.Fprintf(out, "Page %d of %d\n", p.Page, p.TotalPages)
}

func renderCart(out io.Writer, c api.Cart, totals cart.Totals) {
	if len(c.Items) == 0 {
		_, _ = fmt.Fprintln(out, "Your cart is empty")
		return
	}
	tw := newTable(out)
	_, _ = fmt.Fprintln(tw, "ID\tPRODUCT\tQTY\tPRICE\tTOTAL")
	for _, line := range c.Items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", line.ProductID(), line.Product.Name(), line.Quantity,
			types.FormatMoney(line.UnitPrice()), types.FormatMoney(line.LineTotal()))
	}
	_ = tw.Flush()

	tw = newTable(out)
	_, _ = fmt.Fprintf(tw, "Items\t%d\n", totals.ItemCount)
	_, _ = fmt.Fprintf(tw, "Subtotal\t%s\n", types.FormatMoney(totals.Subtotal))
	_, _ = fmt.Fprintf(tw, "Discount\t-%s\n", types.FormatMoney(totals.Discount))
	_, _ = fmt.Fprintf(tw, "Tax\t%s\n", types.FormatMoney(totals.Tax))
	_, _ = fmt.Fprintf(tw, "Total\t%s\n", types.FormatMoney(totals.GrandTotal))
	_ = tw.Flush()
}

func renderConfirmation(out io.Writer, conf cart.Confirmation) {
	order := conf.Order
	_, _ = fmt.Fprintln(out, "Order placed")
	tw := newTable(out)
	_, _ = fmt.Fprintf(tw, "Order\t%s\n", order.ID)
	_, _ = fmt.Fprintf(tw, "Payment\t%s (%s)\n", order.PaymentMethod.Label(), order.PaymentStatus)
	_, _ = fmt.Fprintf(tw, "Ship to\t%s\n", order.ShippingAddress)
	if !order.TotalAmount.IsZero() {
		_, _ = fmt.Fprintf(tw, "Total\t%s\n", types.FormatMoney(order.TotalAmount))
	}
	_, _ = fmt.Fprintf(tw, "Estimated delivery\t%s\n", conf.EstimatedDelivery.Format(dateLayout))
	_ = tw.Flush()
}

func renderOrders(out io.Writer, view *orders.View, page []api.Order) {
	tw := newTable(out)
	_, _ = fmt.Fprintln(tw, "ORDER\tPLACED\tITEMS\tTOTAL\tSTATUS\tPAYMENT\tACTIONS")
	for _, o := range page {
		status := o.Status.String()
		if o.CancelledBy != "" {
			status += " by " + o.CancelledBy
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s %s\t%s\n", o.ID, o.CreatedAt.Format(dateLayout), o.ItemCount(),
			types.FormatMoney(o.TotalAmount), status, o.PaymentMethod.Label(), o.PaymentStatus, actionLabel(view.Actions(o)))
	}
	_ = tw.Flush()
}

func actionLabel(a orders.Actions) string {
	var parts []string
	for _, next := range a.NextStatuses {
		parts = append(parts, next.String())
	}
	if a.CanCancel {
		parts = append(parts, "cancel")
	}
	if a.CanMarkPaid {
		parts = append(parts, "mark-paid")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func renderSales(out io.Writer, report orders.SalesReport) {
	if report.Empty() {
		_, _ = fmt.Fprintln(out, "No delivered orders yet")
		return
	}
	tw := newTable(out)
	_, _ = fmt.Fprintf(tw, "Revenue\t%s\n", types.FormatMoney(report.Revenue))
	_, _ = fmt.Fprintf(tw, "Items sold\t%d\n", report.ItemsSold)
	_, _ = fmt.Fprintf(tw, "Paid deliveries\t%d\n", len(report.PaidOrders))
	_, _ = fmt.Fprintf(tw, "Awaiting payment\t%d\n", len(report.UnpaidOrders))
	_ = tw.Flush()
	if len(report.ByProduct) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	tw = newTable(out)
	_, _ = fmt.Fprintln(tw, "PRODUCT\tSOLD\tREVENUE")
	for _, p := range report.ByProduct {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, p.Quantity, types.FormatMoney(p.Revenue))
	}
	_ = tw.Flush()
}

func renderProfile(out io.Writer, p api.Profile) {
	tw := newTable(out)
	_, _ = fmt.Fprintf(tw, "Name\t%s\n", p.Name)
	_, _ = fmt.Fprintf(tw, "Email\t%s\n", p.Email)
	if p.Phone != "" {
		_, _ = fmt.Fprintf(tw, "Phone\t%s\n", p.Phone)
	}
	if !p.Address.IsZero() {
		_, _ = fmt.Fprintf(tw, "Address\t%s\n", p.Address)
	}
	if p.ShopName != "" {
		_, _ = fmt.Fprintf(tw, "Shop\t%s\n", p.ShopName)
	}
	if p.ShopDescription != "" {
		_, _ = fmt.Fprintf(tw, "About\t%s\n", p.ShopDescription)
	}
	_ = tw.Flush()
}
