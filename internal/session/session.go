package session

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/storefront-client/internal/account"
	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/catalog"
	"github.com/angelmondragon/storefront-client/internal/orders"
	"github.com/angelmondragon/storefront-client/internal/paywidget"
	"github.com/angelmondragon/storefront-client/internal/wishlist"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Options shape the view models every session builds.
type Options struct {
	CatalogPageSize int
	SellerPageSize  int
	OrdersPageSize  int
	Rates           *cart.Rates
	StoreName       string
	ThemeColor      string
	Widget          cart.PaymentWidget
	CheckoutMetrics *metrics.CheckoutMetrics
}

// Session owns the view models of one signed-in user, or of a guest. The
// view models are bound to the session's credential and are released by
// Close.
type Session struct {
	record Record
	client *api.Client
	memory *userMemory
	logg   *logger.Logger

	mu             sync.RWMutex
	closed         bool
	catalog        *catalog.Store
	cart           *cart.ViewModel
	wishlist       *wishlist.ViewModel
	orders         *orders.View
	sellerProducts *catalog.SellerProducts
	account        *account.Service
}

func newSession(base *api.Client, store Store, record Record, opts Options, logg *logger.Logger) (*Session, error) {
	cred := record.Credential
	client := base.WithToken(cred.Token)
	s := &Session{record: record, client: client, logg: logg}
	signedIn := client.HasToken()

	var err error
	if s.catalog, err = catalog.NewStore(catalog.StoreParams{
		Backend:  client,
		Logger:   logg,
		PageSize: opts.CatalogPageSize,
		ViewerID: cred.UserID,
	}); err != nil {
		return nil, err
	}
	if s.wishlist, err = wishlist.NewViewModel(wishlist.Params{
		Backend:  client,
		Logger:   logg,
		Role:     cred.Role,
		SignedIn: signedIn,
	}); err != nil {
		return nil, err
	}
	if s.account, err = account.NewService(account.ServiceParams{Backend: client, Logger: logg, Role: cred.Role}); err != nil {
		return nil, err
	}
	if !signedIn {
		return s, nil
	}

	s.memory = &userMemory{store: store, userID: cred.UserID}
	switch cred.Role {
	case enums.RoleBuyer:
		if s.cart, err = cart.NewViewModel(cart.Params{
			Backend:   client,
			Widget:    opts.Widget,
			Memory:    s.memory,
			Logger:    logg,
			Metrics:   opts.CheckoutMetrics,
			Role:      cred.Role,
			Rates:     opts.Rates,
			StoreName: opts.StoreName,
			Theme:     opts.ThemeColor,
			Prefill:   paywidget.Prefill{Name: cred.UserName},
		}); err != nil {
			return nil, err
		}
		if s.orders, err = orders.NewBuyerView(orders.Params{Backend: client, Logger: logg, PageSize: opts.OrdersPageSize}); err != nil {
			return nil, err
		}
	case enums.RoleSeller:
		if s.orders, err = orders.NewSellerView(orders.Params{Backend: client, Logger: logg, PageSize: opts.OrdersPageSize}); err != nil {
			return nil, err
		}
		if s.sellerProducts, err = catalog.NewSellerProducts(catalog.SellerParams{
			Backend:  client,
			Logger:   logg,
			SellerID: cred.UserID,
			PageSize: opts.SellerPageSize,
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Credential returns the signed-in identity; it is zero for guests.
func (s *Session) Credential() api.Credential {
	return s.record.Credential
}

func (s *Session) Role() enums.Role {
	return s.record.Credential.Role
}

func (s *Session) SignedIn() bool {
	return s.client.HasToken()
}

// LogContext tags ctx with the session's user and role.
func (s *Session) LogContext(ctx context.Context) context.Context {
	cred := s.record.Credential
	if cred.UserID != "" {
		ctx = s.logg.WithUserID(ctx, cred.UserID)
	}
	if cred.Role != "" {
		ctx = s.logg.WithRole(ctx, cred.Role.String())
	}
	return ctx
}

func (s *Session) Catalog() (*catalog.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}
	return s.catalog, nil
}

func (s *Session) Wishlist() (*wishlist.ViewModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}
	return s.wishlist, nil
}

func (s *Session) Account() (*account.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errClosed()
	}
	return s.account, nil
}

func (s *Session) Cart() (*cart.ViewModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.require(s.cart != nil, "Please log in as a buyer to use the cart"); err != nil {
		return nil, err
	}
	return s.cart, nil
}

func (s *Session) Orders() (*orders.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.require(s.orders != nil, "Please log in to see your orders"); err != nil {
		return nil, err
	}
	return s.orders, nil
}

func (s *Session) SellerProducts() (*catalog.SellerProducts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.require(s.sellerProducts != nil, "Please log in as a seller to manage products"); err != nil {
		return nil, err
	}
	return s.sellerProducts, nil
}

// LastOrder returns the order placed most recently in this session.
func (s *Session) LastOrder(ctx context.Context) (api.Order, bool, error) {
	if s.memory == nil {
		return api.Order{}, false, nil
	}
	return s.memory.LastOrder(ctx)
}

// Mount loads what the dashboard shows first, concurrently: the first
// catalog page, and for buyers the wishlist and cart. Each view keeps its
// own failure message; the first error is returned.
func (s *Session) Mount(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errClosed()
	}
	store, list, basket := s.catalog, s.wishlist, s.cart
	s.mu.RUnlock()

	ctx = s.LogContext(ctx)
	// A plain group: one failing load must not cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		_, err := store.Query(ctx, catalog.QueryParams{Page: 1})
		if errors.Is(err, catalog.ErrSuperseded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		_, err := list.Load(ctx)
		if errors.Is(err, wishlist.ErrSuperseded) {
			return nil
		}
		return err
	})
	if basket != nil {
		g.Go(func() error {
			_, err := basket.Load(ctx)
			if errors.Is(err, cart.ErrSuperseded) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Close releases the view models. Later accessor calls fail with
// UNAUTHORIZED. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.catalog = nil
	s.cart = nil
	s.wishlist = nil
	s.orders = nil
	s.sellerProducts = nil
	s.account = nil
	return nil
}

func (s *Session) require(present bool, msg string) error {
	if s.closed {
		return errClosed()
	}
	if present {
		return nil
	}
	if !s.client.HasToken() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, msg)
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, msg)
}

func errClosed() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "session has ended, please log in again")
}
