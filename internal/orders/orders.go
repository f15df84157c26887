package orders

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/pagination"
	"github.com/angelmondragon/storefront-client/pkg/sequence"
)

// DefaultPageSize is the number of orders per page in both order lists.
const DefaultPageSize = 5

// CancelledByBuyer is recorded on orders the buyer cancels.
const CancelledByBuyer = "buyer"

// ErrSuperseded is returned to a load whose response arrived after a newer
// load was issued.
var ErrSuperseded = errors.New("orders response superseded by a newer request")

// Backend is the slice of the REST client the order views use.
type Backend interface {
	BuyerOrders(ctx context.Context) ([]api.Order, error)
	SellerOrders(ctx context.Context) ([]api.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (api.Order, error)
	MarkOrderPaid(ctx context.Context, orderID string) (api.Order, error)
	CancelOrder(ctx context.Context, orderID string) (api.Order, error)
}

// Confirmer asks the user to approve a cancellation.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Actions are the affordances a view offers for one order.
type Actions struct {
	CanCancel    bool
	NextStatuses []enums.OrderStatus
	CanMarkPaid  bool
}

// State is a snapshot of an order list. Orders holds every fetched order;
// pagination happens over it locally.
type State struct {
	Orders     []api.Order
	Page       int
	TotalPages int
	Loading    bool
	Message    string
}

type Params struct {
	Backend  Backend
	Logger   *logger.Logger
	PageSize int
}

// View is the buyer's or the seller's order list.
type View struct {
	backend  Backend
	logg     *logger.Logger
	role     enums.Role
	pageSize int
	seq      sequence.Sequencer

	mu    sync.RWMutex
	state State
}

// NewBuyerView lists the signed-in buyer's orders.
func NewBuyerView(params Params) (*View, error) {
	return newView(params, enums.RoleBuyer)
}

// NewSellerView lists orders containing the signed-in seller's products.
func NewSellerView(params Params) (*View, error) {
	return newView(params, enums.RoleSeller)
}

func newView(params Params, role enums.Role) (*View, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders backend is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.PageSize <= 0 {
		params.PageSize = DefaultPageSize
	}
	return &View{
		backend:  params.Backend,
		logg:     params.Logger,
		role:     role,
		pageSize: params.PageSize,
		state: State{
			Orders:     []api.Order{},
			Page:       pagination.MinPage,
			TotalPages: pagination.MinPage,
		},
	}, nil
}

func (v *View) Role() enums.Role {
	return v.role
}

func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := v.state
	out.Orders = append([]api.Order{}, v.state.Orders...)
	return out
}

// Load fetches the full order list and keeps the current page in range.
func (v *View) Load(ctx context.Context) ([]api.Order, error) {
	tok := v.seq.Next()
	v.mu.Lock()
	v.state.Loading = true
	v.mu.Unlock()

	var (
		list []api.Order
		err  error
	)
	if v.role == enums.RoleSeller {
		list, err = v.backend.SellerOrders(ctx)
	} else {
		list, err = v.backend.BuyerOrders(ctx)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.seq.IsLatest(tok) {
		return nil, ErrSuperseded
	}
	v.state.Loading = false
	if err != nil {
		v.state.Orders = []api.Order{}
		v.state.Page = pagination.MinPage
		v.state.TotalPages = pagination.MinPage
		v.state.Message = pkgerrors.UserMessage(err)
		v.logg.WarnErr(v.logg.WithFields(ctx, map[string]any{"operation": "orders.load", "role": string(v.role)}), "orders load failed", err)
		return nil, err
	}
	if list == nil {
		list = []api.Order{}
	}
	v.state.Orders = list
	v.state.TotalPages = pagination.TotalPages(len(list), v.pageSize)
	v.state.Page = pagination.Clamp(v.state.Page, v.state.TotalPages)
	v.state.Message = ""
	return append([]api.Order{}, list...), nil
}

// Page returns the orders on the current page.
func (v *View) Page() []api.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]api.Order{}, pagination.Slice(v.state.Orders, v.state.Page, v.pageSize)...)
}

// GoToPage moves within the fetched list. No request is issued.
func (v *View) GoToPage(page int) []api.Order {
	v.mu.Lock()
	v.state.Page = pagination.Clamp(page, v.state.TotalPages)
	v.mu.Unlock()
	return v.Page()
}

func (v *View) Pager() pagination.Pager {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return pagination.NewPager(v.state.Page, v.state.TotalPages)
}

// Actions reports what the view lets the user do with order.
func (v *View) Actions(order api.Order) Actions {
	actions := Actions{CanCancel: order.Status.IsValid() && !order.Status.IsTerminal()}
	if v.role != enums.RoleSeller {
		return actions
	}
	for _, next := range order.Status.NextStatuses() {
		if next != enums.OrderStatusCancelled {
			actions.NextStatuses = append(actions.NextStatuses, next)
		}
	}
	actions.CanMarkPaid = order.PaymentMethod == enums.PaymentMethodCOD && !order.IsPaid()
	return actions
}

// Cancel cancels orderID after confirm approves. Terminal orders are
// rejected without a request; a declined prompt reports false.
func (v *View) Cancel(ctx context.Context, orderID string, confirm Confirmer) (bool, error) {
	order, err := v.find(orderID)
	if err != nil {
		return false, err
	}
	if order.Status.IsTerminal() {
		return false, v.reject(pkgerrors.New(pkgerrors.CodeStateConflict, "Order can no longer be cancelled"))
	}
	if confirm == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "confirmation is required to cancel an order")
	}
	ok, err := confirm.Confirm(ctx, "Are you sure you want to cancel this order?")
	if err != nil || !ok {
		return false, err
	}

	logCtx := v.logg.WithFields(v.logg.WithOperation(ctx, "orders.cancel"), map[string]any{"order_id": order.ID, "role": string(v.role)})
	var resp api.Order
	if v.role == enums.RoleSeller {
		resp, err = v.backend.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusCancelled)
	} else {
		resp, err = v.backend.CancelOrder(ctx, order.ID)
	}
	if err != nil {
		v.setMessage(err)
		v.logg.WarnErr(logCtx, "order cancel failed", err)
		return false, err
	}

	v.apply(order.ID, resp, func(o *api.Order) {
		o.Status = enums.OrderStatusCancelled
		if v.role == enums.RoleBuyer {
			o.CancelledBy = CancelledByBuyer
		}
	})
	v.logg.Info(logCtx, "order cancelled")
	return true, nil
}

// AdvanceStatus moves a seller's order forward. Cancellation goes through
// Cancel instead.
func (v *View) AdvanceStatus(ctx context.Context, orderID string, next enums.OrderStatus) (api.Order, error) {
	if v.role != enums.RoleSeller {
		return api.Order{}, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers can update order status")
	}
	if next == enums.OrderStatusCancelled {
		return api.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "use cancel to cancel an order")
	}
	order, err := v.find(orderID)
	if err != nil {
		return api.Order{}, err
	}
	if !order.Status.CanTransitionTo(next) {
		return api.Order{}, v.reject(pkgerrors.New(pkgerrors.CodeStateConflict, "Order cannot move from "+order.Status.String()+" to "+next.String()))
	}

	resp, err := v.backend.UpdateOrderStatus(ctx, order.ID, next)
	if err != nil {
		v.setMessage(err)
		v.logg.WarnErr(v.logg.WithFields(v.logg.WithOperation(ctx, "orders.advance"), map[string]any{"order_id": order.ID, "status": next.String()}), "order status update failed", err)
		return api.Order{}, err
	}
	return v.apply(order.ID, resp, func(o *api.Order) { o.Status = next }), nil
}

// MarkPaid records that a cash-on-delivery payment was collected.
func (v *View) MarkPaid(ctx context.Context, orderID string) (api.Order, error) {
	if v.role != enums.RoleSeller {
		return api.Order{}, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers can mark orders paid")
	}
	order, err := v.find(orderID)
	if err != nil {
		return api.Order{}, err
	}
	if order.PaymentMethod != enums.PaymentMethodCOD {
		return api.Order{}, v.reject(pkgerrors.New(pkgerrors.CodeStateConflict, "Only cash on delivery orders can be marked paid"))
	}
	if order.IsPaid() {
		return api.Order{}, v.reject(pkgerrors.New(pkgerrors.CodeStateConflict, "Order is already paid"))
	}

	resp, err := v.backend.MarkOrderPaid(ctx, order.ID)
	if err != nil {
		v.setMessage(err)
		v.logg.WarnErr(v.logg.WithField(v.logg.WithOperation(ctx, "orders.mark_paid"), "order_id", order.ID), "mark paid failed", err)
		return api.Order{}, err
	}
	return v.apply(order.ID, resp, func(o *api.Order) { o.PaymentStatus = enums.PaymentStatusPaid }), nil
}

func (v *View) find(orderID string) (api.Order, error) {
	orderID = strings.TrimSpace(orderID)
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, order := range v.state.Orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return api.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

// apply records a successful mutation. A full order in resp replaces the
// held one; an acknowledgement only applies patch.
func (v *View) apply(orderID string, resp api.Order, patch func(*api.Order)) api.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.state.Orders {
		if v.state.Orders[i].ID != orderID {
			continue
		}
		updated := v.state.Orders[i]
		patch(&updated)
		if resp.ID == orderID && resp.Status.IsValid() {
			items := updated.Items
			cancelledBy := updated.CancelledBy
			updated = resp
			if len(updated.Items) == 0 {
				updated.Items = items
			}
			if updated.CancelledBy == "" {
				updated.CancelledBy = cancelledBy
			}
		}
		v.state.Orders[i] = updated
		v.state.Message = ""
		return updated
	}
	return resp
}

func (v *View) reject(err *pkgerrors.Error) error {
	v.setMessage(err)
	return err
}

func (v *View) setMessage(err error) {
	v.mu.Lock()
	v.state.Message = pkgerrors.UserMessage(err)
	v.mu.Unlock()
}
