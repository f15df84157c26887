package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// PlaceOrderRequest submits the cart as a cash-on-delivery order.
type PlaceOrderRequest struct {
	ShippingAddress string              `json:"shippingAddress" validate:"required"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cod"`
}

type updateStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

// PlaceOrder creates an order from the current cart.
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (Order, error) {
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	if err := Validate(req); err != nil {
		return Order{}, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, request{
		operation: "orders.place",
		method:    http.MethodPost,
		path:      "/orders/",
		body:      req,
		auth:      true,
	}, &raw); err != nil {
		return Order{}, err
	}
	return decodeOrder(raw, "orders.place")
}

// BuyerOrders lists every order placed by the signed-in buyer.
func (c *Client) BuyerOrders(ctx context.Context) ([]Order, error) {
	return c.listOrders(ctx, "orders.buyer", "/orders/buyer")
}

// SellerOrders lists every order containing the signed-in seller's products.
func (c *Client) SellerOrders(ctx context.Context) ([]Order, error) {
	return c.listOrders(ctx, "orders.seller", "/orders/seller")
}

func (c *Client) listOrders(ctx context.Context, op, path string) ([]Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{
		operation: op,
		method:    http.MethodGet,
		path:      path,
		auth:      true,
	}, &raw); err != nil {
		return nil, err
	}
	orders, err := unwrapList[Order](raw, "orders")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return orders, nil
}

// UpdateOrderStatus sets the fulfilment status of an order.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	req := updateStatusRequest{Status: status}
	if err := Validate(req); err != nil {
		return Order{}, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, request{
		operation: "orders.status",
		method:    http.MethodPut,
		path:      "/orders/" + pathEscape(orderID) + "/status",
		body:      req,
		auth:      true,
	}, &raw); err != nil {
		return Order{}, err
	}
	return decodeOrder(raw, "orders.status")
}

// MarkOrderPaid records collection of a cash-on-delivery payment.
func (c *Client) MarkOrderPaid(ctx context.Context, orderID string) (Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var raw json.RawMessage
	if err := c.do(ctx, request{
		operation: "orders.mark_paid",
		method:    http.MethodPatch,
		path:      "/orders/" + pathEscape(orderID) + "/mark-paid",
		auth:      true,
	}, &raw); err != nil {
		return Order{}, err
	}
	return decodeOrder(raw, "orders.mark_paid")
}

// CancelOrder cancels a buyer's order. The backend may answer with only an
// acknowledgement, in which case the returned order carries just its id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return Order{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var raw json.RawMessage
	if err := c.do(ctx, request{
		operation: "orders.cancel",
		method:    http.MethodPut,
		path:      "/orders/buyer/" + pathEscape(orderID),
		auth:      true,
	}, &raw); err != nil {
		return Order{}, err
	}
	order, err := decodeOrder(raw, "orders.cancel")
	if err != nil {
		return Order{}, err
	}
	if order.ID == "" {
		order.ID = orderID
	}
	return order, nil
}

func decodeOrder(raw json.RawMessage, op string) (Order, error) {
	order, err := unwrap[Order](raw, "order")
	if err != nil {
		return Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return order, nil
}

// unwrapList decodes either a bare array or an object nesting it under key.
func unwrapList[T any](raw json.RawMessage, key string) ([]T, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []T{}, nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, err
		}
		raw = envelope[key]
		if len(raw) == 0 {
			return []T{}, nil
		}
	}
	out := []T{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
