package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-client/internal/api"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// Product fetches a product's detail and keeps it as the open detail view.
func (s *Store) Product(ctx context.Context, id string) (api.Product, error) {
	product, err := s.backend.GetProduct(ctx, id)
	if err != nil {
		s.mu.Lock()
		s.state.Detail = nil
		s.state.Message = pkgerrors.UserMessage(err)
		s.mu.Unlock()
		s.logg.WarnErr(s.logg.WithField(s.logg.WithOperation(ctx, "catalog.product"), "product_id", id), "product detail failed", err)
		return api.Product{}, err
	}

	s.mu.Lock()
	detail := product
	s.state.Detail = &detail
	s.state.Message = ""
	s.mu.Unlock()
	return product, nil
}

// HasReviewed reports whether the viewer already reviewed the open product.
func (s *Store) HasReviewed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Detail == nil || s.viewerID == "" {
		return false
	}
	return reviewIndex(s.state.Detail.Reviews, s.viewerID) >= 0
}

// SubmitReview creates or replaces the viewer's review of productID. The
// stored review replaces the viewer's previous one in the open detail, and
// the aggregate rating is updated wherever the product is shown.
func (s *Store) SubmitReview(ctx context.Context, productID string, rating int, comment string) (api.Product, error) {
	if s.viewerID == "" {
		return api.Product{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "please log in to write a review")
	}
	result, err := s.backend.AddReview(ctx, productID, api.ReviewInput{Rating: rating, Comment: strings.TrimSpace(comment)})
	if err != nil {
		s.logg.WarnErr(s.logg.WithField(s.logg.WithOperation(ctx, "catalog.review"), "product_id", productID), "submit review failed", err)
		return api.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Items {
		if s.state.Items[i].ID == productID {
			s.state.Items[i].NumReviews = result.NumReviews
			s.state.Items[i].AverageRating = result.AverageRating
		}
	}

	if s.state.Detail == nil || s.state.Detail.ID != productID {
		return api.Product{ID: productID, NumReviews: result.NumReviews, AverageRating: result.AverageRating}, nil
	}

	detail := *s.state.Detail
	reviews := append([]api.Review(nil), detail.Reviews...)
	review := result.Review
	if review.User.ID == "" {
		review.User.ID = s.viewerID
	}
	if idx := reviewIndex(reviews, s.viewerID); idx >= 0 {
		reviews[idx] = review
	} else {
		reviews = append(reviews, review)
	}
	detail.Reviews = reviews
	detail.NumReviews = result.NumReviews
	detail.AverageRating = result.AverageRating
	s.state.Detail = &detail
	return detail, nil
}

func reviewIndex(reviews []api.Review, userID string) int {
	for i, review := range reviews {
		if review.User.ID == userID {
			return i
		}
	}
	return -1
}
