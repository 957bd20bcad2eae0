package services

import (
	"context"

	domain "github.com/momiji-market/bff/internal/domain"
	"github.com/momiji-market/bff/internal/storeapi"
)

// OrderGateway is the slice of the remote commerce API the lifecycle service
// consumes. storeapi.Client satisfies it; tests substitute stubs.
type OrderGateway interface {
	GetOrderDetail(ctx context.Context, orderID int64) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderNumber string, status domain.OrderStatus) error
	CancelOrder(ctx context.Context, orderID int64) error
}

// ReviewGateway forwards review operations to the remote API.
type ReviewGateway interface {
	CreateReview(ctx context.Context, req storeapi.CreateReviewRequest) (domain.Review, error)
	ListProductReviews(ctx context.Context, productID int64) ([]domain.Review, error)
}

// FavoriteGateway forwards wishlist operations to the remote API.
type FavoriteGateway interface {
	ListFavorites(ctx context.Context) ([]int64, error)
	AddFavorite(ctx context.Context, productID int64) error
	RemoveFavorite(ctx context.Context, productID int64) error
}

// OrderSnapshot pairs the latest fetched order with its derived view-state.
// It is the unit the UI renders from; it is never persisted.
type OrderSnapshot struct {
	Order domain.Order
	View  domain.OrderView
}

// RefundCommand carries a user-initiated refund request.
type RefundCommand struct {
	Order  domain.Order
	Amount int64
}

// OrderLifecycleService orchestrates fetching orders, applying the
// auto-complete transition, and the user-triggered mutations. Every mutation
// follows mutate-then-reload; local state is never updated optimistically.
type OrderLifecycleService interface {
	LoadOrder(ctx context.Context, orderID int64) (OrderSnapshot, error)
	ListOrders(ctx context.Context) ([]OrderSnapshot, error)
	ConfirmOrder(ctx context.Context, order domain.Order) (OrderSnapshot, error)
	CancelOrder(ctx context.Context, orderID int64) (OrderSnapshot, error)
	RequestRefund(ctx context.Context, cmd RefundCommand) (OrderSnapshot, error)
}

// CreateReviewCommand carries a review submission.
type CreateReviewCommand struct {
	UserID    string
	ProductID int64
	OrderID   int64
	Rating    int
	Title     string
	Content   string
}

// ReviewService validates and forwards product reviews.
type ReviewService interface {
	Create(ctx context.Context, cmd CreateReviewCommand) (domain.Review, error)
	ListForProduct(ctx context.Context, productID int64) ([]domain.Review, error)
}

// FavoriteService maintains per-user wishlists with optimistic toggles.
// Unlike the order lifecycle, a toggle mutates the local view first and rolls
// back on API failure; the stakes are low enough that the asymmetry is
// deliberate. Every call is scoped to the authenticated user, never shared.
type FavoriteService interface {
	List(ctx context.Context, userID string) ([]int64, error)
	Toggle(ctx context.Context, userID string, productID int64, favorited bool) ([]int64, error)
}
