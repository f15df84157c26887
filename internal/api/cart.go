package api

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

type addToCartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity" validate:"min=1"`
}

// GetCart fetches the signed-in buyer's cart.
func (c *Client) GetCart(ctx context.Context) (Cart, error) {
	var cart Cart
	err := c.do(ctx, request{
		operation: "cart.get",
		method:    http.MethodGet,
		path:      "/cart/",
		auth:      true,
	}, &cart)
	return normalizeCart(cart), err
}

// AddToCart adds quantity units of productID. The response body is not
// authoritative; callers refetch the cart afterwards.
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) error {
	req := addToCartRequest{ProductID: strings.TrimSpace(productID), Quantity: quantity}
	if err := Validate(req); err != nil {
		return err
	}
	return c.do(ctx, request{
		operation: "cart.add",
		method:    http.MethodPost,
		path:      "/cart/",
		body:      req,
		auth:      true,
	}, nil)
}

// UpdateCartItem sets the quantity of one line and returns the updated cart.
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) (Cart, error) {
	if strings.TrimSpace(productID) == "" {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	req := updateCartRequest{Quantity: quantity}
	if err := Validate(req); err != nil {
		return Cart{}, err
	}
	var cart Cart
	err := c.do(ctx, request{
		operation: "cart.update",
		method:    http.MethodPut,
		path:      "/cart/" + pathEscape(productID),
		body:      req,
		auth:      true,
	}, &cart)
	return normalizeCart(cart), err
}

// RemoveCartItem deletes one line and returns the updated cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID string) (Cart, error) {
	if strings.TrimSpace(productID) == "" {
		return Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var cart Cart
	err := c.do(ctx, request{
		operation: "cart.remove",
		method:    http.MethodDelete,
		path:      "/cart/" + pathEscape(productID),
		auth:      true,
	}, &cart)
	return normalizeCart(cart), err
}

// normalizeCart drops lines whose product no longer resolves.
func normalizeCart(cart Cart) Cart {
	items := make([]CartLine, 0, len(cart.Items))
	for _, line := range cart.Items {
		if line.Product.ID == "" {
			continue
		}
		items = append(items, line)
	}
	cart.Items = items
	return cart
}
