package wishlist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/sequence"
)

// ErrSuperseded is returned to a load whose response arrived after a newer
// load was issued.
var ErrSuperseded = errors.New("wishlist response superseded by a newer request")

// Outcome is the result of adding a product.
type Outcome string

const (
	OutcomeAdded        Outcome = "added"
	OutcomeExists       Outcome = "exists"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeError        Outcome = "error"
)

// Backend is the slice of the REST client the wishlist uses.
type Backend interface {
	GetWishlist(ctx context.Context) ([]api.Product, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
}

type State struct {
	Items   []api.Product
	Loading bool
	Message string
}

type Params struct {
	Backend  Backend
	Logger   *logger.Logger
	Role     enums.Role
	SignedIn bool
}

// ViewModel holds the buyer's wishlist. The list is always the server's;
// mutations refetch instead of editing it locally.
type ViewModel struct {
	backend  Backend
	logg     *logger.Logger
	role     enums.Role
	signedIn bool
	seq      sequence.Sequencer

	mu    sync.RWMutex
	state State
}

func NewViewModel(params Params) (*ViewModel, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist backend is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &ViewModel{
		backend:  params.Backend,
		logg:     params.Logger,
		role:     params.Role,
		signedIn: params.SignedIn,
		state:    State{Items: []api.Product{}},
	}, nil
}

func (vm *ViewModel) State() State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := vm.state
	out.Items = append([]api.Product{}, vm.state.Items...)
	return out
}

func (vm *ViewModel) Size() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return len(vm.state.Items)
}

func (vm *ViewModel) active() bool {
	return vm.signedIn && vm.role == enums.RoleBuyer
}

// Load fetches the wishlist. It does nothing for guests and sellers.
func (vm *ViewModel) Load(ctx context.Context) ([]api.Product, error) {
	if !vm.active() {
		return []api.Product{}, nil
	}
	tok := vm.seq.Next()
	vm.mu.Lock()
	vm.state.Loading = true
	vm.mu.Unlock()

	items, err := vm.backend.GetWishlist(ctx)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.seq.IsLatest(tok) {
		return nil, ErrSuperseded
	}
	vm.state.Loading = false
	if err != nil {
		vm.state.Message = pkgerrors.UserMessage(err)
		vm.logg.WarnErr(vm.logg.WithOperation(ctx, "wishlist.load"), "wishlist load failed", err)
		return nil, err
	}
	if items == nil {
		items = []api.Product{}
	}
	vm.state.Items = items
	vm.state.Message = ""
	return append([]api.Product{}, items...), nil
}

// IsMember reports whether productID is in the held list.
func (vm *ViewModel) IsMember(productID string) bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, item := range vm.state.Items {
		if item.ID == productID {
			return true
		}
	}
	return false
}

// Add puts productID on the wishlist. A duplicate reports OutcomeExists with
// no error; the error is set only for OutcomeUnauthorized and OutcomeError.
func (vm *ViewModel) Add(ctx context.Context, productID string) (Outcome, error) {
	productID = strings.TrimSpace(productID)
	logCtx := vm.logg.WithField(vm.logg.WithOperation(ctx, "wishlist.add"), "product_id", productID)
	if !vm.active() {
		err := pkgerrors.New(pkgerrors.CodeUnauthorized, "Please log in as a buyer to use the wishlist")
		vm.setMessage(err)
		return OutcomeUnauthorized, err
	}

	err := vm.backend.AddToWishlist(ctx, productID)
	switch {
	case err == nil:
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		vm.logg.Debug(logCtx, "product already in wishlist")
		return OutcomeExists, nil
	case pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), pkgerrors.IsCode(err, pkgerrors.CodeForbidden):
		vm.setMessage(err)
		vm.logg.WarnErr(logCtx, "wishlist add rejected", err)
		return OutcomeUnauthorized, err
	default:
		vm.setMessage(err)
		vm.logg.WarnErr(logCtx, "wishlist add failed", err)
		return OutcomeError, err
	}

	if _, err := vm.Load(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return OutcomeError, err
	}
	return OutcomeAdded, nil
}

// Remove deletes productID and refetches the list.
func (vm *ViewModel) Remove(ctx context.Context, productID string) ([]api.Product, error) {
	if !vm.active() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please log in as a buyer to use the wishlist")
	}
	productID = strings.TrimSpace(productID)
	if err := vm.backend.RemoveFromWishlist(ctx, productID); err != nil {
		vm.setMessage(err)
		vm.logg.WarnErr(vm.logg.WithField(vm.logg.WithOperation(ctx, "wishlist.remove"), "product_id", productID), "wishlist remove failed", err)
		return nil, err
	}
	return vm.Load(ctx)
}

func (vm *ViewModel) setMessage(err error) {
	vm.mu.Lock()
	vm.state.Message = pkgerrors.UserMessage(err)
	vm.mu.Unlock()
}
