package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	"github.com/angelmondragon/storefront-client/pkg/types"
	"github.com/shopspring/decimal"
)

// Image is one product image, in display order.
type Image struct {
	URL string `json:"url"`
}

// UserRef identifies a user embedded in another resource. The backend sends
// either the bare id or a populated object.
type UserRef struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (u *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = UserRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*u = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode user ref: %w", err)
	}
	*u = UserRef(decoded)
	return nil
}

type Review struct {
	ID        string    `json:"_id,omitempty"`
	User      UserRef   `json:"user"`
	Name      string    `json:"name,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category"`
	Stock         int             `json:"stock"`
	Images        []Image         `json:"images"`
	AverageRating float64         `json:"averageRating"`
	NumReviews    int             `json:"numReviews"`
	Seller        UserRef         `json:"seller"`
	Reviews       []Review        `json:"reviews,omitempty"`
	CreatedAt     time.Time       `json:"createdAt,omitempty"`
}

// PriceLabel renders the price with two decimals.
func (p Product) PriceLabel() string {
	return types.FormatMoney(p.Price)
}

// Cover returns the first image URL, if any.
func (p Product) Cover() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// Stars renders the average rating as star counts.
func (p Product) Stars() types.StarRating {
	return types.Stars(p.AverageRating)
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductRef is a product reference that decodes either a bare id or an
// embedded product.
type ProductRef struct {
	ID      string
	Product *Product
}

func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ProductRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = ProductRef{ID: id}
		return nil
	}
	var product Product
	if err := json.Unmarshal(data, &product); err != nil {
		return fmt.Errorf("decode product ref: %w", err)
	}
	*r = ProductRef{ID: product.ID, Product: &product}
	return nil
}

func (r ProductRef) MarshalJSON() ([]byte, error) {
	if r.Product != nil {
		return json.Marshal(r.Product)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// Name returns the embedded product name, falling back to the id.
func (r ProductRef) Name() string {
	if r.Product != nil && r.Product.Name != "" {
		return r.Product.Name
	}
	return r.ID
}

// CartLine is one product in the cart.
type CartLine struct {
	Product  ProductRef      `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price,omitempty"`
}

// UnitPrice is the price snapshot on the line, or the product price when the
// backend did not snapshot one.
func (l CartLine) UnitPrice() decimal.Decimal {
	if !l.Price.IsZero() {
		return l.Price
	}
	if l.Product.Product != nil {
		return l.Product.Product.Price
	}
	return decimal.Zero
}

// LineTotal is quantity × unit price.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ProductID returns the referenced product id.
func (l CartLine) ProductID() string {
	return l.Product.ID
}

// Cart is the buyer's server-side cart. An empty cart is valid.
type Cart struct {
	ID    string     `json:"_id,omitempty"`
	User  UserRef    `json:"user"`
	Items []CartLine `json:"items"`
}

// OrderItem is one purchased line, priced at purchase time.
type OrderItem struct {
	Product  ProductRef      `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// UnitPrice is the price at purchase, falling back to the embedded product price.
func (i OrderItem) UnitPrice() decimal.Decimal {
	if !i.Price.IsZero() {
		return i.Price
	}
	if i.Product.Product != nil {
		return i.Product.Product.Price
	}
	return decimal.Zero
}

// Order is a placed order as seen by its buyer or seller.
type Order struct {
	ID              string              `json:"_id"`
	Items           []OrderItem         `json:"items"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	ShippingAddress string              `json:"shippingAddress"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	Buyer           UserRef             `json:"buyer"`
	CancelledBy     string              `json:"cancelledBy,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt,omitempty"`
}

// IsPaid reports whether the payment has been collected.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == enums.PaymentStatusPaid
}

// ItemCount sums the quantities of every line.
func (o Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// Credential is the result of a successful sign-in.
type Credential struct {
	Token    string     `json:"token"`
	UserID   string     `json:"userId"`
	UserName string     `json:"userName"`
	Role     enums.Role `json:"role"`
}

// Profile is the editable account profile. Shop fields apply to sellers only.
type Profile struct {
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone,omitempty"`
	Address         types.Address `json:"address"`
	ShopName        string        `json:"shopName,omitempty"`
	ShopDescription string        `json:"shopDescription,omitempty"`
}
