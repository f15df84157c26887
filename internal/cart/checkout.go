package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/paywidget"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
)

// Confirmation is what the order confirmation view shows.
type Confirmation struct {
	Order             api.Order
	EstimatedDelivery time.Time
}

// PlaceOrder checks out the cart. The local cart is cleared only once the
// backend has created the order; any earlier failure leaves it untouched.
func (vm *ViewModel) PlaceOrder(ctx context.Context, shippingAddress string, method enums.PaymentMethod) (Confirmation, error) {
	if err := vm.requireBuyer(); err != nil {
		return Confirmation{}, err
	}
	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "Please enter a shipping address").
			WithDetails(map[string]string{"shippingAddress": "shippingAddress is required"})
		vm.setMessage(err)
		return Confirmation{}, err
	}
	if !method.IsValid() {
		err := pkgerrors.New(pkgerrors.CodeValidation, "Please choose a payment method")
		vm.setMessage(err)
		return Confirmation{}, err
	}

	logCtx := vm.logg.WithFields(vm.logg.WithOperation(ctx, "cart.place_order"), map[string]any{"payment_method": string(method)})

	var (
		order api.Order
		err   error
	)
	switch method {
	case enums.PaymentMethodCOD:
		order, err = vm.backend.PlaceOrder(ctx, api.PlaceOrderRequest{ShippingAddress: shippingAddress, PaymentMethod: method})
	case enums.PaymentMethodOnline:
		order, err = vm.payOnline(ctx, shippingAddress)
	}
	if err != nil {
		vm.metrics.Observe(string(method), checkoutOutcome(err))
		vm.setMessage(err)
		vm.logg.WarnErr(logCtx, "place order failed", err)
		return Confirmation{}, err
	}

	vm.clear()
	vm.metrics.Observe(string(method), metrics.OutcomePlaced)
	vm.logg.Info(vm.logg.WithField(logCtx, "order_id", order.ID), "order placed")
	vm.remember(ctx, order, CheckoutPrefs{ShippingAddress: shippingAddress, PaymentMethod: method})

	return Confirmation{Order: order, EstimatedDelivery: EstimatedDelivery(vm.now())}, nil
}

// payOnline runs the hosted payment protocol. The provider order amount is
// decided by the backend from its own view of the cart.
func (vm *ViewModel) payOnline(ctx context.Context, shippingAddress string) (api.Order, error) {
	if vm.widget == nil {
		return api.Order{}, pkgerrors.New(pkgerrors.CodePaymentWidget, "online payment is not available")
	}
	if err := vm.widget.Load(ctx); err != nil {
		return api.Order{}, err
	}
	key, err := vm.backend.PaymentKey(ctx)
	if err != nil {
		return api.Order{}, err
	}
	providerOrder, err := vm.backend.CreatePaymentOrder(ctx)
	if err != nil {
		return api.Order{}, err
	}
	proof, err := vm.widget.Open(ctx, paywidget.Checkout{
		Key:         key,
		Order:       providerOrder,
		StoreName:   vm.storeName,
		Description: "Order payment",
		Prefill:     vm.prefill,
		ThemeColor:  vm.theme,
	})
	if err != nil {
		return api.Order{}, err
	}
	result, err := vm.backend.VerifyPayment(ctx, api.VerifyPaymentRequest{
		PaymentProof:    proof,
		ShippingAddress: shippingAddress,
	})
	if err != nil {
		return api.Order{}, err
	}

	if result.Order != nil {
		return *result.Order, nil
	}
	return api.Order{
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPaid,
		PaymentMethod:   enums.PaymentMethodOnline,
		ShippingAddress: shippingAddress,
		CreatedAt:       vm.now(),
	}, nil
}

// CheckoutPrefs returns the address and method used last time, if any.
func (vm *ViewModel) CheckoutPrefs(ctx context.Context) (CheckoutPrefs, bool) {
	if vm.memory == nil {
		return CheckoutPrefs{}, false
	}
	prefs, ok, err := vm.memory.LoadCheckoutPrefs(ctx)
	if err != nil {
		vm.logg.WarnErr(vm.logg.WithOperation(ctx, "cart.checkout_prefs"), "load checkout preferences failed", err)
		return CheckoutPrefs{}, false
	}
	return prefs, ok
}

// remember persists the placed order and checkout choices. The order is
// already placed, so persistence failures are only logged.
func (vm *ViewModel) remember(ctx context.Context, order api.Order, prefs CheckoutPrefs) {
	if vm.memory == nil {
		return
	}
	logCtx := vm.logg.WithOperation(ctx, "cart.remember")
	if err := vm.memory.SaveLastOrder(ctx, order); err != nil {
		vm.logg.WarnErr(logCtx, "save last order failed", err)
	}
	if err := vm.memory.SaveCheckoutPrefs(ctx, prefs); err != nil {
		vm.logg.WarnErr(logCtx, "save checkout preferences failed", err)
	}
}

func (vm *ViewModel) setMessage(err error) {
	vm.mu.Lock()
	vm.state.Message = pkgerrors.UserMessage(err)
	vm.mu.Unlock()
}

func checkoutOutcome(err error) string {
	if errors.Is(err, paywidget.ErrDismissed) {
		return metrics.OutcomeDismissed
	}
	return metrics.OutcomeFailed
}
