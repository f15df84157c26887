package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/shopspring/decimal"
)

type stubBackend struct {
	mu      sync.Mutex
	calls   []api.ProductQuery
	pages   int
	err     error
	gate    map[string]chan struct{}
	product api.Product
	review  api.ReviewResult
}

func (s *stubBackend) ListProducts(ctx context.Context, q api.ProductQuery) (api.ProductPage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	gate := s.gate[q.Search]
	pages, err := s.pages, s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return api.ProductPage{}, err
	}
	return api.ProductPage{
		Products: []api.Product{{ID: "p-" + q.Search, Name: q.Search}},
		Pages:    pages,
	}, nil
}

func (s *stubBackend) GetProduct(ctx context.Context, id string) (api.Product, error) {
	return s.product, s.err
}

func (s *stubBackend) AddReview(ctx context.Context, productID string, input api.ReviewInput) (api.ReviewResult, error) {
	return s.review, s.err
}

func (s *stubBackend) lastCall() api.ProductQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func (s *stubBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	store, err := NewStore(StoreParams{Backend: backend, ViewerID: "u1"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestNewStoreRequiresBackend(t *testing.T) {
	if _, err := NewStore(StoreParams{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuerySuccess(t *testing.T) {
	backend := &stubBackend{pages: 3}
	store := newStore(t, backend)

	result, err := store.Query(context.Background(), QueryParams{Search: "lamp", Page: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalPages != 3 || result.Page != 2 || len(result.Items) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := backend.lastCall(); got.Limit != DefaultPageSize || got.Sort != enums.SortDefault {
		t.Fatalf("page size and sort should be normalized, got %+v", got)
	}
	state := store.State()
	if state.Loading || state.Message != "" || state.TotalPages != 3 {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestQueryClampsPageToTotal(t *testing.T) {
	backend := &stubBackend{pages: 0}
	store := newStore(t, backend)

	result, err := store.Query(context.Background(), QueryParams{Page: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalPages != 1 || result.Page != 1 {
		t.Fatalf("expected page clamped into [1,1], got %+v", result)
	}
}

func TestQueryLoadingFlagDuringRequest(t *testing.T) {
	gate := make(chan struct{})
	backend := &stubBackend{pages: 1, gate: map[string]chan struct{}{"slow": gate}}
	store := newStore(t, backend)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.Query(context.Background(), QueryParams{Search: "slow"})
	}()

	waitFor(t, func() bool { return backend.callCount() == 1 })
	if !store.State().Loading {
		t.Fatalf("expected loading while request in flight")
	}
	close(gate)
	<-done
	if store.State().Loading {
		t.Fatalf("expected loading cleared after completion")
	}
}

func TestQueryFailureClearsState(t *testing.T) {
	backend := &stubBackend{pages: 4}
	store := newStore(t, backend)
	if _, err := store.Query(context.Background(), QueryParams{Search: "a", Page: 3}); err != nil {
		t.Fatalf("seed query: %v", err)
	}

	backend.err = pkgerrors.New(pkgerrors.CodeTransport, "")
	_, err := store.Query(context.Background(), QueryParams{Search: "b"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	state := store.State()
	if len(state.Items) != 0 || state.TotalPages != 1 || state.Loading {
		t.Fatalf("failure should clear items and reset pages, got %+v", state)
	}
	if state.Message != pkgerrors.MetadataFor(pkgerrors.CodeTransport).PublicMessage {
		t.Fatalf("unexpected message %q", state.Message)
	}
	if backend.callCount() != 2 {
		t.Fatalf("failed query must not be retried, got %d calls", backend.callCount())
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	backend := &stubBackend{pages: 2, gate: map[string]chan struct{}{"old": gate}}
	store := newStore(t, backend)

	errCh := make(chan error, 1)
	go func() {
		_, err := store.Query(context.Background(), QueryParams{Search: "old"})
		errCh <- err
	}()
	waitFor(t, func() bool { return backend.callCount() == 1 })

	if _, err := store.Query(context.Background(), QueryParams{Search: "new"}); err != nil {
		t.Fatalf("new query: %v", err)
	}
	close(gate)
	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected superseded error, got %v", err)
	}

	state := store.State()
	if len(state.Items) != 1 || state.Items[0].ID != "p-new" {
		t.Fatalf("older response overwrote newer state: %+v", state.Items)
	}
	if state.Params.Search != "new" {
		t.Fatalf("active params should be the newer query, got %+v", state.Params)
	}
}

func TestPaginationKeepsFilters(t *testing.T) {
	backend := &stubBackend{pages: 3}
	store := newStore(t, backend)
	ctx := context.Background()
	min := decimal.NewFromInt(5)

	if _, err := store.Query(ctx, QueryParams{Search: "mug", Category: "kitchen", MinPrice: &min}); err != nil {
		t.Fatalf("query: %v", err)
	}
	pager := store.Pager()
	if !pager.PrevDisabled || pager.NextDisabled || len(pager.Pages) != 3 {
		t.Fatalf("unexpected pager on first page: %+v", pager)
	}

	if _, err := store.Prev(ctx); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if got := backend.lastCall(); got.Page != 1 {
		t.Fatalf("prev on first page should stay on 1, got %d", got.Page)
	}

	if _, err := store.GoToPage(ctx, 3); err != nil {
		t.Fatalf("go to page: %v", err)
	}
	got := backend.lastCall()
	if got.Page != 3 || got.Search != "mug" || got.Category != "kitchen" || got.MinPrice == nil || !got.MinPrice.Equal(min) {
		t.Fatalf("page change should keep filters, got %+v", got)
	}

	if _, err := store.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := backend.lastCall(); got.Page != 3 {
		t.Fatalf("next on last page should stay on 3, got %d", got.Page)
	}
	if !store.Pager().NextDisabled {
		t.Fatalf("next should be disabled on last page")
	}
}

func TestApplySearchAndFilters(t *testing.T) {
	backend := &stubBackend{pages: 5}
	store := newStore(t, backend)
	ctx := context.Background()

	if _, err := store.Query(ctx, QueryParams{Category: "books", Page: 4}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if _, err := store.ApplySearch(ctx, " go "); err != nil {
		t.Fatalf("search: %v", err)
	}
	got := backend.lastCall()
	if got.Page != 1 || got.Search != "go" || got.Category != "books" {
		t.Fatalf("search should reset page and keep filters, got %+v", got)
	}

	if _, err := store.ApplyFilters(ctx, Filters{Category: "games", Sort: enums.SortNewest}); err != nil {
		t.Fatalf("filters: %v", err)
	}
	got = backend.lastCall()
	if got.Page != 1 || got.Search != "go" || got.Category != "games" || got.Sort != enums.SortNewest {
		t.Fatalf("filters should reset page and keep search, got %+v", got)
	}
}

func TestSubmitReviewReplacesViewersReview(t *testing.T) {
	backend := &stubBackend{
		pages: 1,
		product: api.Product{
			ID: "p1",
			Reviews: []api.Review{
				{User: api.UserRef{ID: "u1"}, Rating: 2, Comment: "meh"},
				{User: api.UserRef{ID: "u2"}, Rating: 5, Comment: "great"},
			},
			NumReviews:    2,
			AverageRating: 3.5,
		},
		review: api.ReviewResult{
			Review:        api.Review{User: api.UserRef{ID: "u1"}, Rating: 4, Comment: "better"},
			NumReviews:    2,
			AverageRating: 4.5,
		},
	}
	store := newStore(t, backend)
	ctx := context.Background()

	if _, err := store.Product(ctx, "p1"); err != nil {
		t.Fatalf("product: %v", err)
	}
	if !store.HasReviewed() {
		t.Fatalf("viewer already has a review")
	}
	updated, err := store.SubmitReview(ctx, "p1", 4, "better")
	if err != nil {
		t.Fatalf("submit review: %v", err)
	}
	if len(updated.Reviews) != 2 || updated.Reviews[0].Comment != "better" {
		t.Fatalf("expected viewer's review replaced in place, got %+v", updated.Reviews)
	}
	if updated.AverageRating != 4.5 || updated.NumReviews != 2 {
		t.Fatalf("aggregate not refreshed: %+v", updated)
	}
}

func TestSubmitReviewRequiresViewer(t *testing.T) {
	store, err := NewStore(StoreParams{Backend: &stubBackend{}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.SubmitReview(context.Background(), "p1", 5, "x"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
