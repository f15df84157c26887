package catalog

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
	"github.com/shopspring/decimal"
)

// DefaultPageSize is the catalog page size.
const DefaultPageSize = 8

// ErrSuperseded is returned by a query whose response arrived after a newer
// query was issued. The response was discarded.
var ErrSuperseded = errors.New("catalog query superseded")

// QueryParams selects a catalog page.
type QueryParams = api.ProductQuery

// Filters are the catalog refinements other than the search text.
type Filters struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     enums.SortKey
}

// Backend is the slice of the REST client the catalog reads from.
type Backend interface {
	ListProducts(ctx context.Context, q api.ProductQuery) (api.ProductPage, error)
	GetProduct(ctx context.Context, id string) (api.Product, error)
	AddReview(ctx context.Context, productID string, input api.ReviewInput) (api.ReviewResult, error)
}

// Result is one applied catalog query.
type Result struct {
	Items      []api.Product
	TotalPages int
	Page       int
}

// State is a snapshot of the catalog view.
type State struct {
	Items      []api.Product
	TotalPages int
	Page       int
	Params     QueryParams
	Loading    bool
	// Message is the transient user-facing failure text, empty on success.
	Message string
	Detail  *api.Product
}

// StoreParams groups dependencies for the catalog store.
type StoreParams struct {
	Backend  Backend
	Logger   *logger.Logger
	PageSize int
	// ViewerID is the signed-in user, used to place their own review.
	ViewerID string
}

// Store holds the current catalog page. It is safe for concurrent use.
type Store struct {
	backend  Backend
	logg     *logger.Logger
	pageSize int
	viewerID string
	seq      sequence.Sequencer

	mu    sync.RWMutex
	state State
}

// NewStore builds a catalog store with the required dependencies.
func NewStore(params StoreParams) (*Store, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog backend is required")
	}
	if params.PageSize <= 0 {
		params.PageSize = DefaultPageSize
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &Store{
		backend:  params.Backend,
		logg:     params.Logger,
		pageSize: params.PageSize,
		viewerID: strings.TrimSpace(params.ViewerID),
		state: State{
			Items:      []api.Product{},
			TotalPages: pagination.MinPage,
			Page:       pagination.MinPage,
			Params:     QueryParams{Page: pagination.MinPage, Limit: params.PageSize},
		},
	}, nil
}

// State returns a copy of the current view state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Items = append([]api.Product(nil), s.state.Items...)
	if s.state.Detail != nil {
		detail := *s.state.Detail
		out.Detail = &detail
	}
	return out
}

// Query fetches the page selected by params. On failure the list is cleared,
// total pages resets to 1 and the error is returned; nothing is retried.
func (s *Store) Query(ctx context.Context, params QueryParams) (Result, error) {
	params = s.normalize(params)
	tok := s.seq.Next()

	s.mu.Lock()
	s.state.Loading = true
	s.state.Params = params
	s.mu.Unlock()

	page, err := s.backend.ListProducts(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seq.IsLatest(tok) {
		return Result{}, ErrSuperseded
	}
	s.state.Loading = false

	if err != nil {
		s.state.Items = []api.Product{}
		s.state.TotalPages = pagination.MinPage
		s.state.Page = pagination.MinPage
		s.state.Message = pkgerrors.UserMessage(err)
		s.logg.WarnErr(s.logg.WithOperation(ctx, "catalog.query"), "catalog query failed", err)
		return Result{}, err
	}

	totalPages := page.Pages
	if totalPages < pagination.MinPage {
		totalPages = pagination.MinPage
	}
	s.state.Items = page.Products
	s.state.TotalPages = totalPages
	s.state.Page = pagination.Clamp(params.Page, totalPages)
	s.state.Params.Page = s.state.Page
	s.state.Message = ""

	return Result{
		Items:      append([]api.Product(nil), page.Products...),
		TotalPages: totalPages,
		Page:       s.state.Page,
	}, nil
}

// Refresh re-issues the active query.
func (s *Store) Refresh(ctx context.Context) (Result, error) {
	return s.Query(ctx, s.activeParams())
}

// Pager returns the page controls for the current result.
func (s *Store) Pager() pagination.Pager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pagination.NewPager(s.state.Page, s.state.TotalPages)
}

// GoToPage re-issues the active query for page, clamped to the known range.
func (s *Store) GoToPage(ctx context.Context, page int) (Result, error) {
	s.mu.RLock()
	params := s.state.Params
	totalPages := s.state.TotalPages
	s.mu.RUnlock()

	params.Page = pagination.Clamp(page, totalPages)
	return s.Query(ctx, params)
}

// Next moves one page forward, staying on the last page at the boundary.
func (s *Store) Next(ctx context.Context) (Result, error) {
	return s.GoToPage(ctx, s.Pager().NextPage)
}

// Prev moves one page back, staying on the first page at the boundary.
func (s *Store) Prev(ctx context.Context) (Result, error) {
	return s.GoToPage(ctx, s.Pager().PrevPage)
}

// ApplySearch sets the search text and returns to page 1, keeping filters.
func (s *Store) ApplySearch(ctx context.Context, text string) (Result, error) {
	params := s.activeParams()
	params.Search = strings.TrimSpace(text)
	params.Page = pagination.MinPage
	return s.Query(ctx, params)
}

// ApplyFilters replaces the filters and returns to page 1, keeping the search text.
func (s *Store) ApplyFilters(ctx context.Context, filters Filters) (Result, error) {
	params := s.activeParams()
	params.Category = strings.TrimSpace(filters.Category)
	params.MinPrice = filters.MinPrice
	params.MaxPrice = filters.MaxPrice
	params.Sort = filters.Sort
	params.Page = pagination.MinPage
	return s.Query(ctx, params)
}

func (s *Store) activeParams() QueryParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Params
}

func (s *Store) normalize(params QueryParams) QueryParams {
	if params.Page < pagination.MinPage {
		params.Page = pagination.MinPage
	}
	params.Limit = s.pageSize
	if params.Sort == "" {
		params.Sort = enums.SortDefault
	}
	return params
}
