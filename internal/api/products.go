package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/shopspring/decimal"
)

// ProductQuery selects a catalog page. Zero-valued filters are omitted from
// the request.
type ProductQuery struct {
	Search   string           `json:"search"`
	Category string           `json:"category"`
	MinPrice *decimal.Decimal `json:"minPrice"`
	MaxPrice *decimal.Decimal `json:"maxPrice"`
	Sort     enums.SortKey    `json:"sort" validate:"omitempty,oneof=default priceLowHigh priceHighLow newest"`
	Page     int              `json:"page" validate:"min=1"`
	Limit    int              `json:"limit" validate:"min=1,max=100"`
}

// Values encodes the query, dropping every absent parameter.
func (q ProductQuery) Values() url.Values {
	values := url.Values{}
	if search := strings.TrimSpace(q.Search); search != "" {
		values.Set("search", search)
	}
	if category := strings.TrimSpace(q.Category); category != "" {
		values.Set("category", category)
	}
	if q.MinPrice != nil {
		values.Set("minPrice", q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		values.Set("maxPrice", q.MaxPrice.String())
	}
	if !q.Sort.IsDefault() {
		values.Set("sort", q.Sort.String())
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

func (q ProductQuery) validate() error {
	if err := Validate(q); err != nil {
		return err
	}
	if (q.MinPrice != nil && q.MinPrice.IsNegative()) || (q.MaxPrice != nil && q.MaxPrice.IsNegative()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price filters must not be negative")
	}
	return nil
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products []Product `json:"products"`
	Pages    int       `json:"pages"`
}

// Upload is an image file attached to a product form.
type Upload struct {
	Filename string
	Data     []byte
}

// ProductForm is the seller's create/update payload.
type ProductForm struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"min=0"`
	Category    string          `json:"category" validate:"required"`
	Images      []Upload        `json:"images"`
}

func (f ProductForm) validate(creating bool) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Category = strings.TrimSpace(f.Category)
	if err := Validate(f); err != nil {
		return err
	}
	if f.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
			WithDetails(map[string]string{"price": "must not be negative"})
	}
	if creating && len(f.Images) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "upload at least one image").
			WithDetails(map[string]string{"images": "at least one image is required"})
	}
	return nil
}

func (f ProductForm) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	fields := []struct{ key, value string }{
		{"name", strings.TrimSpace(f.Name)},
		{"description", strings.TrimSpace(f.Description)},
		{"price", f.Price.String()},
		{"stock", strconv.Itoa(f.Stock)},
		{"category", strings.TrimSpace(f.Category)},
	}
	for _, field := range fields {
		if err := writer.WriteField(field.key, field.value); err != nil {
			return nil, "", err
		}
	}
	for _, img := range f.Images {
		part, err := writer.CreateFormFile("images", img.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}

// ReviewInput is a buyer's rating and comment for a product.
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

// ReviewResult carries the stored review and the refreshed aggregate.
type ReviewResult struct {
	Review        Review  `json:"review"`
	NumReviews    int     `json:"numReviews"`
	AverageRating float64 `json:"averageRating"`
	Message       string  `json:"message,omitempty"`
}

// ListProducts fetches one catalog page.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (ProductPage, error) {
	if err := q.validate(); err != nil {
		return ProductPage{}, err
	}
	var page ProductPage
	err := c.do(ctx, request{
		operation: "products.list",
		method:    http.MethodGet,
		path:      "/products",
		query:     q.Values(),
	}, &page)
	if err != nil {
		return ProductPage{}, err
	}
	if page.Products == nil {
		page.Products = []Product{}
	}
	return page, nil
}

// GetProduct fetches a single product with its reviews.
func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var product Product
	err := c.do(ctx, request{
		operation: "products.get",
		method:    http.MethodGet,
		path:      "/products/" + pathEscape(id),
	}, &product)
	return product, err
}

// CreateProduct publishes a new product for the signed-in seller.
func (c *Client) CreateProduct(ctx context.Context, form ProductForm) (Product, error) {
	return c.saveProduct(ctx, "products.create", http.MethodPost, "/products/", form, true)
}

// UpdateProduct replaces the editable fields of a product. Images are optional.
func (c *Client) UpdateProduct(ctx context.Context, id string, form ProductForm) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return c.saveProduct(ctx, "products.update", http.MethodPut, "/products/"+pathEscape(id), form, false)
}

func (c *Client) saveProduct(ctx context.Context, op, method, path string, form ProductForm, creating bool) (Product, error) {
	if err := form.validate(creating); err != nil {
		return Product{}, err
	}
	body, contentType, err := form.encode()
	if err != nil {
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode product form")
	}
	var raw json.RawMessage
	err = c.do(ctx, request{
		operation:   op,
		method:      method,
		path:        path,
		rawBody:     body,
		contentType: contentType,
		auth:        true,
	}, &raw)
	if err != nil {
		return Product{}, err
	}
	product, err := unwrap[Product](raw, "product")
	if err != nil {
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return product, nil
}

// DeleteProduct removes a seller's product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return c.do(ctx, request{
		operation: "products.delete",
		method:    http.MethodDelete,
		path:      "/products/" + pathEscape(id),
		auth:      true,
	}, nil)
}

// AddReview creates or replaces the signed-in buyer's review.
func (c *Client) AddReview(ctx context.Context, productID string, input ReviewInput) (ReviewResult, error) {
	if strings.TrimSpace(productID) == "" {
		return ReviewResult{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	input.Comment = strings.TrimSpace(input.Comment)
	if err := Validate(input); err != nil {
		return ReviewResult{}, err
	}
	var result ReviewResult
	err := c.do(ctx, request{
		operation: "products.review",
		method:    http.MethodPost,
		path:      "/products/" + pathEscape(productID) + "/review",
		body:      input,
		auth:      true,
	}, &result)
	return result, err
}
