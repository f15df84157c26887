package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/paywidget"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/angelmondragon/storefront-client/pkg/sequence"
)

// ErrSuperseded is returned to a cart call whose response arrived after a
// newer cart call was issued. The newer call owns the state.
var ErrSuperseded = errors.New("cart response superseded by a newer request")

// Backend is the slice of the REST client the cart uses.
type Backend interface {
	GetCart(ctx context.Context) (api.Cart, error)
	AddToCart(ctx context.Context, productID string, quantity int) error
	UpdateCartItem(ctx context.Context, productID string, quantity int) (api.Cart, error)
	RemoveCartItem(ctx context.Context, productID string) (api.Cart, error)
	PlaceOrder(ctx context.Context, req api.PlaceOrderRequest) (api.Order, error)
	PaymentKey(ctx context.Context) (string, error)
	CreatePaymentOrder(ctx context.Context) (api.ProviderOrder, error)
	VerifyPayment(ctx context.Context, req api.VerifyPaymentRequest) (api.VerifyPaymentResult, error)
}

// PaymentWidget is the external checkout the online flow hands off to.
type PaymentWidget interface {
	Load(ctx context.Context) error
	Open(ctx context.Context, checkout paywidget.Checkout) (api.PaymentProof, error)
}

// CheckoutPrefs are remembered between checkouts.
type CheckoutPrefs struct {
	ShippingAddress string              `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
}

// Memory persists checkout state for the signed-in buyer.
type Memory interface {
	SaveLastOrder(ctx context.Context, order api.Order) error
	SaveCheckoutPrefs(ctx context.Context, prefs CheckoutPrefs) error
	LoadCheckoutPrefs(ctx context.Context) (CheckoutPrefs, bool, error)
}

// State is a snapshot of the cart view.
type State struct {
	Cart    api.Cart
	Totals  Totals
	Loading bool
	Message string
}

type Params struct {
	Backend   Backend
	Widget    PaymentWidget
	Memory    Memory
	Logger    *logger.Logger
	Metrics   *metrics.CheckoutMetrics
	Role      enums.Role
	Rates     *Rates
	StoreName string
	Theme     string
	Prefill   paywidget.Prefill
	Now       func() time.Time
}

// ViewModel owns the buyer's cart. Local quantities may run ahead of the
// server while an update is in flight; every successful response replaces
// the whole cart.
//
// authoritative is the newest server cart seen, even from a response that
// lost the race to display. settled is false while the most recently issued
// call is outstanding.
type ViewModel struct {
	backend   Backend
	widget    PaymentWidget
	memory    Memory
	logg      *logger.Logger
	metrics   *metrics.CheckoutMetrics
	role      enums.Role
	rates     Rates
	storeName string
	theme     string
	prefill   paywidget.Prefill
	now       func() time.Time
	seq       sequence.Sequencer

	mu            sync.RWMutex
	state         State
	authoritative api.Cart
	authTok       sequence.Token
	settled       bool
}

func NewViewModel(params Params) (*ViewModel, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart backend is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	rates := DefaultRates()
	if params.Rates != nil {
		rates = *params.Rates
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	vm := &ViewModel{
		backend:   params.Backend,
		widget:    params.Widget,
		memory:    params.Memory,
		logg:      params.Logger,
		metrics:   params.Metrics,
		role:      params.Role,
		rates:     rates,
		storeName: params.StoreName,
		theme:     params.Theme,
		prefill:   params.Prefill,
		now:       params.Now,
		settled:   true,
	}
	vm.state = State{Cart: emptyCart(), Totals: ComputeTotals(nil, rates)}
	vm.authoritative = emptyCart()
	return vm, nil
}

func (vm *ViewModel) State() State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := vm.state
	out.Cart = cloneCart(vm.state.Cart)
	return out
}

// Contains reports whether productID has a line in the cart.
func (vm *ViewModel) Contains(productID string) bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return lineIndex(vm.state.Cart.Items, productID) >= 0
}

// Load fetches the buyer's cart.
func (vm *ViewModel) Load(ctx context.Context) (api.Cart, error) {
	if err := vm.requireBuyer(); err != nil {
		return api.Cart{}, err
	}
	vm.mu.Lock()
	tok := vm.issue()
	vm.state.Loading = true
	vm.mu.Unlock()

	cart, err := vm.backend.GetCart(ctx)
	return vm.commit(ctx, tok, "cart.load", cart, err)
}

// Add puts one unit of productID in the cart and refetches it. A product
// that is already in the cart is left alone.
func (vm *ViewModel) Add(ctx context.Context, productID string) (api.Cart, error) {
	if err := vm.requireBuyer(); err != nil {
		return api.Cart{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return api.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if vm.Contains(productID) {
		return vm.State().Cart, nil
	}
	if err := vm.backend.AddToCart(ctx, productID, 1); err != nil {
		vm.fail(ctx, "cart.add", productID, err)
		return api.Cart{}, err
	}
	return vm.Load(ctx)
}

// SetQuantity clamps quantity to at least 1, shows it locally, then sends
// it. On failure the cart falls back to the last server response.
func (vm *ViewModel) SetQuantity(ctx context.Context, productID string, quantity int) (api.Cart, error) {
	if err := vm.requireBuyer(); err != nil {
		return api.Cart{}, err
	}
	if quantity < 1 {
		quantity = 1
	}

	vm.mu.Lock()
	idx := lineIndex(vm.state.Cart.Items, productID)
	if idx < 0 {
		vm.mu.Unlock()
		return api.Cart{}, pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart")
	}
	vm.state.Cart.Items[idx].Quantity = quantity
	vm.state.Totals = ComputeTotals(vm.state.Cart.Items, vm.rates)
	tok := vm.issue()
	vm.mu.Unlock()

	cart, err := vm.backend.UpdateCartItem(ctx, productID, quantity)
	return vm.commit(ctx, tok, "cart.set_quantity", cart, err)
}

// Remove deletes productID's line and replaces the cart with the response.
func (vm *ViewModel) Remove(ctx context.Context, productID string) (api.Cart, error) {
	if err := vm.requireBuyer(); err != nil {
		return api.Cart{}, err
	}
	vm.mu.Lock()
	tok := vm.issue()
	vm.mu.Unlock()
	cart, err := vm.backend.RemoveCartItem(ctx, productID)
	return vm.commit(ctx, tok, "cart.remove", cart, err)
}

// Totals returns the summary of the cart as currently shown.
func (vm *ViewModel) Totals() Totals {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state.Totals
}

// issue hands out the token for a new cart call. Callers hold mu.
func (vm *ViewModel) issue() sequence.Token {
	vm.settled = false
	return vm.seq.Next()
}

// commit applies a backend response. Every success newer than the recorded
// server cart becomes authoritative; only the latest call, or a late success
// once nothing newer is outstanding, updates what is shown. A failure of the
// latest call restores the authoritative cart.
func (vm *ViewModel) commit(ctx context.Context, tok sequence.Token, op string, cart api.Cart, err error) (api.Cart, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	latest := vm.seq.IsLatest(tok)
	if err == nil && tok > vm.authTok {
		if cart.Items == nil {
			cart.Items = []api.CartLine{}
		}
		vm.authoritative = cloneCart(cart)
		vm.authTok = tok
		if latest || vm.settled {
			vm.state.Cart = cloneCart(cart)
			vm.state.Totals = ComputeTotals(cart.Items, vm.rates)
		}
	}
	if !latest {
		return api.Cart{}, ErrSuperseded
	}
	vm.settled = true
	vm.state.Loading = false
	if err != nil {
		vm.state.Cart = cloneCart(vm.authoritative)
		vm.state.Totals = ComputeTotals(vm.state.Cart.Items, vm.rates)
		vm.state.Message = pkgerrors.UserMessage(err)
		vm.logg.WarnErr(vm.logg.WithOperation(ctx, op), "cart request failed", err)
		return api.Cart{}, err
	}
	vm.state.Message = ""
	return cloneCart(vm.authoritative), nil
}

// clear empties the cart locally after an order is placed. Responses to
// calls issued before it are ignored.
func (vm *ViewModel) clear() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.authTok = vm.seq.Next()
	vm.settled = true
	owner := vm.authoritative.User
	vm.authoritative = emptyCart()
	vm.authoritative.User = owner
	vm.state.Cart = cloneCart(vm.authoritative)
	vm.state.Totals = ComputeTotals(nil, vm.rates)
	vm.state.Loading = false
	vm.state.Message = ""
}

func (vm *ViewModel) fail(ctx context.Context, op, productID string, err error) {
	vm.mu.Lock()
	vm.state.Message = pkgerrors.UserMessage(err)
	vm.mu.Unlock()
	logCtx := vm.logg.WithOperation(ctx, op)
	if productID != "" {
		logCtx = vm.logg.WithField(logCtx, "product_id", productID)
	}
	vm.logg.WarnErr(logCtx, "cart request failed", err)
}

func (vm *ViewModel) requireBuyer() error {
	if vm.role != enums.RoleBuyer {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only buyers have a cart")
	}
	return nil
}

func emptyCart() api.Cart {
	return api.Cart{Items: []api.CartLine{}}
}

func cloneCart(cart api.Cart) api.Cart {
	out := cart
	out.Items = append([]api.CartLine{}, cart.Items...)
	return out
}

func lineIndex(lines []api.CartLine, productID string) int {
	for i, line := range lines {
		if line.ProductID() == productID {
			return i
		}
	}
	return -1
}
