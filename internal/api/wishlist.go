package api

import (
	"context"
	"net/http"
	"strings"
)

type wishlistRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// GetWishlist fetches the signed-in buyer's wishlist products.
func (c *Client) GetWishlist(ctx context.Context) ([]Product, error) {
	var resp struct {
		Wishlist []Product `json:"wishlist"`
	}
	err := c.do(ctx, request{
		operation: "wishlist.get",
		method:    http.MethodGet,
		path:      "/auth/wishlist",
		auth:      true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Wishlist == nil {
		return []Product{}, nil
	}
	return resp.Wishlist, nil
}

// AddToWishlist adds productID. A product already present fails with CONFLICT.
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	req := wishlistRequest{ProductID: strings.TrimSpace(productID)}
	if err := Validate(req); err != nil {
		return err
	}
	return c.do(ctx, request{
		operation: "wishlist.add",
		method:    http.MethodPost,
		path:      "/auth/wishlist",
		body:      req,
		auth:      true,
	}, nil)
}

// RemoveFromWishlist deletes productID from the wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	req := wishlistRequest{ProductID: strings.TrimSpace(productID)}
	if err := Validate(req); err != nil {
		return err
	}
	return c.do(ctx, request{
		operation: "wishlist.remove",
		method:    http.MethodDelete,
		path:      "/auth/wishlist/" + pathEscape(req.ProductID),
		auth:      true,
	}, nil)
}
