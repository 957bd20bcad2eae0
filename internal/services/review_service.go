package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/momiji-market/bff/internal/domain"
	"github.com/momiji-market/bff/internal/storeapi"
)

// ErrReviewNotAllowed is returned when the order backing the review does not
// permit one: wrong owner, or the purchase was never confirmed.
var ErrReviewNotAllowed = errors.New("review: not allowed")

// ReviewDeps bundles collaborators for the review service.
type ReviewDeps struct {
	Reviews ReviewGateway
	Orders  OrderGateway
	// Sanitizer strips markup from user-authored text before it is forwarded.
	// Defaults to a user-generated-content HTML policy.
	Sanitizer func(string) string
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type reviewService struct {
	reviews  ReviewGateway
	orders   OrderGateway
	sanitize func(string) string
	logger   func(context.Context, string, map[string]any)
}

// NewReviewService wires dependencies into a ReviewService.
func NewReviewService(deps ReviewDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review gateway is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("review service: order gateway is required")
	}

	sanitize := deps.Sanitizer
	if sanitize == nil {
		policy := bluemonday.UGCPolicy()
		sanitize = policy.Sanitize
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &reviewService{
		reviews:  deps.Reviews,
		orders:   deps.Orders,
		sanitize: sanitize,
		logger:   logger,
	}, nil
}

// Create validates the submission against the backing order and forwards it.
// Only the owner of a confirmed purchase may review its products.
func (s *reviewService) Create(ctx context.Context, cmd CreateReviewCommand) (domain.Review, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return domain.Review{}, fmt.Errorf("%w: user id is required", ErrLifecycleInvalidInput)
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return domain.Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrLifecycleInvalidInput)
	}
	content := strings.TrimSpace(s.sanitize(cmd.Content))
	if content == "" {
		return domain.Review{}, fmt.Errorf("%w: review content is required", ErrLifecycleInvalidInput)
	}
	title := strings.TrimSpace(s.sanitize(cmd.Title))

	order, err := s.orders.GetOrderDetail(ctx, cmd.OrderID)
	if err != nil {
		return domain.Review{}, s.mapGatewayError(err)
	}
	if order.UserID != cmd.UserID {
		return domain.Review{}, fmt.Errorf("%w: order belongs to another user", ErrReviewNotAllowed)
	}
	if order.Status != domain.OrderStatusCompleted {
		return domain.Review{}, fmt.Errorf("%w: purchase is not confirmed", ErrReviewNotAllowed)
	}
	if !orderContainsProduct(order, cmd.ProductID) {
		return domain.Review{}, fmt.Errorf("%w: product is not part of the order", ErrReviewNotAllowed)
	}

	review, err := s.reviews.CreateReview(ctx, storeapi.CreateReviewRequest{
		ProductID: cmd.ProductID,
		OrderID:   cmd.OrderID,
		Rating:    cmd.Rating,
		Title:     title,
		Content:   content,
	})
	if err != nil {
		return domain.Review{}, s.mapGatewayError(err)
	}

	s.logger(ctx, "review.created", map[string]any{
		"review_id":  review.ID,
		"product_id": cmd.ProductID,
		"order_id":   cmd.OrderID,
	})
	return review, nil
}

// ListForProduct fetches the published reviews of one product.
func (s *reviewService) ListForProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	reviews, err := s.reviews.ListProductReviews(ctx, productID)
	if err != nil {
		return nil, s.mapGatewayError(err)
	}
	return reviews, nil
}

func (s *reviewService) mapGatewayError(err error) error {
	switch {
	case errors.Is(err, storeapi.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	case errors.Is(err, storeapi.ErrUnauthorized):
		return fmt.Errorf("%w: %v", ErrOrderUnauthorized, err)
	case errors.Is(err, storeapi.ErrConflict):
		return fmt.Errorf("%w: %v", ErrOrderConflict, err)
	case errors.Is(err, storeapi.ErrInvalidInput):
		return fmt.Errorf("%w: %v", ErrLifecycleInvalidInput, err)
	default:
		return err
	}
}

func orderContainsProduct(order domain.Order, productID int64) bool {
	for _, item := range order.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
