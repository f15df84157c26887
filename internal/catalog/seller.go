package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-client/internal/api"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/pagination"
	"github.com/angelmondragon/storefront-client/pkg/sequence"
)

// DefaultSellerPageSize is the page size of the seller's product list.
const DefaultSellerPageSize = 10

// SellerBackend is the slice of the REST client product management uses.
type SellerBackend interface {
	ListProducts(ctx context.Context, q api.ProductQuery) (api.ProductPage, error)
	CreateProduct(ctx context.Context, form api.ProductForm) (api.Product, error)
	UpdateProduct(ctx context.Context, id string, form api.ProductForm) (api.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// SellerState is a snapshot of the seller's product list.
type SellerState struct {
	Items      []api.Product
	Page       int
	TotalPages int
	Loading    bool
	Message    string
}

type SellerParams struct {
	Backend  SellerBackend
	Logger   *logger.Logger
	SellerID string
	PageSize int
}

// SellerProducts lists and manages the signed-in seller's own products.
type SellerProducts struct {
	backend  SellerBackend
	logg     *logger.Logger
	sellerID string
	pageSize int
	seq      sequence.Sequencer

	mu    sync.RWMutex
	state SellerState
}

func NewSellerProducts(params SellerParams) (*SellerProducts, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller products backend is required")
	}
	sellerID := strings.TrimSpace(params.SellerID)
	if sellerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if params.PageSize <= 0 {
		params.PageSize = DefaultSellerPageSize
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &SellerProducts{
		backend:  params.Backend,
		logg:     params.Logger,
		sellerID: sellerID,
		pageSize: params.PageSize,
		state: SellerState{
			Items:      []api.Product{},
			Page:       pagination.MinPage,
			TotalPages: pagination.MinPage,
		},
	}, nil
}

func (p *SellerProducts) State() SellerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := p.state
	out.Items = append([]api.Product(nil), p.state.Items...)
	return out
}

// Load fetches page and keeps only products owned by the seller.
func (p *SellerProducts) Load(ctx context.Context, page int) ([]api.Product, error) {
	if page < pagination.MinPage {
		page = pagination.MinPage
	}
	tok := p.seq.Next()
	p.mu.Lock()
	p.state.Loading = true
	p.mu.Unlock()

	result, err := p.backend.ListProducts(ctx, api.ProductQuery{Page: page, Limit: p.pageSize})

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seq.IsLatest(tok) {
		return nil, ErrSuperseded
	}
	p.state.Loading = false
	if err != nil {
		p.state.Items = []api.Product{}
		p.state.TotalPages = pagination.MinPage
		p.state.Page = pagination.MinPage
		p.state.Message = pkgerrors.UserMessage(err)
		p.logg.WarnErr(p.logg.WithOperation(ctx, "seller_products.load"), "seller products load failed", err)
		return nil, err
	}

	owned := make([]api.Product, 0, len(result.Products))
	for _, product := range result.Products {
		if product.Seller.ID == p.sellerID {
			owned = append(owned, product)
		}
	}
	totalPages := result.Pages
	if totalPages < pagination.MinPage {
		totalPages = pagination.MinPage
	}
	p.state.Items = owned
	p.state.TotalPages = totalPages
	p.state.Page = pagination.Clamp(page, totalPages)
	p.state.Message = ""
	return append([]api.Product(nil), owned...), nil
}

// Pager returns the page controls for the seller list.
func (p *SellerProducts) Pager() pagination.Pager {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return pagination.NewPager(p.state.Page, p.state.TotalPages)
}

// Create publishes a product and reloads the current page.
func (p *SellerProducts) Create(ctx context.Context, form api.ProductForm) (api.Product, error) {
	product, err := p.backend.CreateProduct(ctx, form)
	if err != nil {
		p.fail(ctx, "seller_products.create", "product create failed", err)
		return api.Product{}, err
	}
	p.reload(ctx)
	return product, nil
}

// Update saves a product and reloads the current page.
func (p *SellerProducts) Update(ctx context.Context, id string, form api.ProductForm) (api.Product, error) {
	product, err := p.backend.UpdateProduct(ctx, id, form)
	if err != nil {
		p.fail(ctx, "seller_products.update", "product update failed", err)
		return api.Product{}, err
	}
	p.reload(ctx)
	return product, nil
}

// Delete removes a product once the confirmer approves. A declined prompt
// sends no request and reports false.
func (p *SellerProducts) Delete(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if confirm == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "confirmation is required to delete a product")
	}
	ok, err := confirm.Confirm(ctx, "Are you sure you want to delete this product?")
	if err != nil || !ok {
		return false, err
	}
	if err := p.backend.DeleteProduct(ctx, id); err != nil {
		p.fail(ctx, "seller_products.delete", "product delete failed", err)
		return false, err
	}
	p.reload(ctx)
	return true, nil
}

func (p *SellerProducts) reload(ctx context.Context) {
	p.mu.RLock()
	page := p.state.Page
	p.mu.RUnlock()
	// Load records its own failure in state.
	_, _ = p.Load(ctx, page)
}

func (p *SellerProducts) fail(ctx context.Context, op, msg string, err error) {
	p.mu.Lock()
	p.state.Message = pkgerrors.UserMessage(err)
	p.mu.Unlock()
	p.logg.WarnErr(p.logg.WithOperation(ctx, op), msg, err)
}
