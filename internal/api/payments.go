package api

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/shopspring/decimal"
)

// ProviderOrder is the payment-provider order created server-side. The
// amount is decided by the backend from the cart.
type ProviderOrder struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// PaymentProof is what the widget hands back after a successful payment.
type PaymentProof struct {
	ProviderOrderID string `json:"razorpay_order_id" validate:"required"`
	PaymentID       string `json:"razorpay_payment_id" validate:"required"`
	Signature       string `json:"razorpay_signature" validate:"required"`
}

// VerifyPaymentRequest asks the backend to verify a payment and create the order.
type VerifyPaymentRequest struct {
	PaymentProof
	ShippingAddress string `json:"shippingAddress" validate:"required"`
}

// VerifyPaymentResult reports the verification outcome.
type VerifyPaymentResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}

// PaymentKey fetches the public key the widget is initialised with.
func (c *Client) PaymentKey(ctx context.Context) (string, error) {
	var resp struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, request{
		operation: "payments.key",
		method:    http.MethodGet,
		path:      "/payments/key",
		auth:      true,
	}, &resp); err != nil {
		return "", err
	}
	key := strings.TrimSpace(resp.Key)
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payment key unavailable")
	}
	return key, nil
}

// CreatePaymentOrder creates a provider order for the current cart. No amount
// is sent; the backend prices the cart itself.
func (c *Client) CreatePaymentOrder(ctx context.Context) (ProviderOrder, error) {
	var resp struct {
		Order ProviderOrder `json:"order"`
	}
	if err := c.do(ctx, request{
		operation: "payments.create",
		method:    http.MethodPost,
		path:      "/payments/create",
		body:      struct{}{},
		auth:      true,
	}, &resp); err != nil {
		return ProviderOrder{}, err
	}
	if resp.Order.ID == "" {
		return ProviderOrder{}, pkgerrors.New(pkgerrors.CodeDependency, "payment order missing id")
	}
	return resp.Order, nil
}

// VerifyPayment submits the widget proof. A response with success=false is
// returned as PAYMENT_VERIFICATION_FAILED.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (VerifyPaymentResult, error) {
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	if err := Validate(req); err != nil {
		return VerifyPaymentResult{}, err
	}
	var result VerifyPaymentResult
	err := c.do(ctx, request{
		operation: "payments.verify",
		method:    http.MethodPost,
		path:      "/payments/verify",
		body:      req,
		auth:      true,
	}, &result)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Status() == http.StatusBadRequest {
			return VerifyPaymentResult{}, pkgerrors.Wrap(pkgerrors.CodePaymentVerification, err, typed.Message()).WithStatus(typed.Status())
		}
		return VerifyPaymentResult{}, err
	}
	if !result.Success {
		msg := strings.TrimSpace(result.Message)
		if msg == "" {
			msg = pkgerrors.MetadataFor(pkgerrors.CodePaymentVerification).PublicMessage
		}
		return result, pkgerrors.New(pkgerrors.CodePaymentVerification, msg)
	}
	return result, nil
}
