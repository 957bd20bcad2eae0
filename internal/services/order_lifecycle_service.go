package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/momiji-market/bff/internal/domain"
	"github.com/momiji-market/bff/internal/payments"
	"github.com/momiji-market/bff/internal/storeapi"
)

const refundCurrency = "jpy"

var (
	// ErrLifecycleInvalidInput signals the caller provided invalid data; it is
	// raised before any network call is made.
	ErrLifecycleInvalidInput = errors.New("lifecycle: invalid input")
	// ErrOrderNotFound indicates the remote API has no such order.
	ErrOrderNotFound = errors.New("lifecycle: order not found")
	// ErrOrderUnauthorized indicates the caller's credentials were rejected.
	ErrOrderUnauthorized = errors.New("lifecycle: unauthorized")
	// ErrOrderConflict indicates the server refused the transition; the caller
	// should reload to resync with the authoritative state.
	ErrOrderConflict = errors.New("lifecycle: conflict")
)

// OrderLifecycleDeps bundles collaborators for the lifecycle service.
type OrderLifecycleDeps struct {
	Gateway OrderGateway
	Refunds payments.Provider
	Clock   func() time.Time
	// IDGenerator mints idempotency keys for refund issuance.
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type lifecycleService struct {
	gateway OrderGateway
	refunds payments.Provider
	clock   func() time.Time
	newID   func() string
	logger  func(context.Context, string, map[string]any)
}

// NewOrderLifecycleService wires dependencies into an OrderLifecycleService.
func NewOrderLifecycleService(deps OrderLifecycleDeps) (OrderLifecycleService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("lifecycle service: order gateway is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &lifecycleService{
		gateway: deps.Gateway,
		refunds: deps.Refunds,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// LoadOrder fetches the order and derives its view. When the derivation
// signals that the post-delivery grace period has elapsed, the COMPLETED
// transition is requested at most once, then the order is re-fetched so the
// view carries the authoritative completedAt. A failed attempt is logged and
// the pre-transition snapshot is returned; the next load will try again,
// which is safe because the server no-ops on an already-completed order.
func (s *lifecycleService) LoadOrder(ctx context.Context, orderID int64) (OrderSnapshot, error) {
	order, err := s.gateway.GetOrderDetail(ctx, orderID)
	if err != nil {
		return OrderSnapshot{}, s.mapGatewayError(err)
	}

	snapshot := s.derive(ctx, order)
	if !snapshot.View.AutoComplete {
		return snapshot, nil
	}

	if err := s.gateway.UpdateOrderStatus(ctx, order.OrderNumber, domain.OrderStatusCompleted); err != nil {
		s.logger(ctx, "order.autocomplete.failed", map[string]any{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"error":        err.Error(),
		})
		return snapshot, nil
	}

	refreshed, err := s.gateway.GetOrderDetail(ctx, orderID)
	if err != nil {
		s.logger(ctx, "order.autocomplete.refetch_failed", map[string]any{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return snapshot, nil
	}

	s.logger(ctx, "order.autocomplete.applied", map[string]any{
		"order_id":     refreshed.ID,
		"order_number": refreshed.OrderNumber,
	})
	return s.derive(ctx, refreshed), nil
}

// ListOrders fetches the caller's history, newest first, with derived views.
func (s *lifecycleService) ListOrders(ctx context.Context) ([]OrderSnapshot, error) {
	orders, err := s.gateway.ListOrders(ctx)
	if err != nil {
		return nil, s.mapGatewayError(err)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	snapshots := make([]OrderSnapshot, 0, len(orders))
	now := s.clock()
	for _, order := range orders {
		view := domain.DeriveOrderView(order, now)
		if !view.StatusKnown {
			s.logUnknownStatus(ctx, order)
		}
		snapshots = append(snapshots, OrderSnapshot{Order: order, View: view})
	}
	return snapshots, nil
}

// ConfirmOrder requests the explicit DELIVERED -> COMPLETED transition and
// reloads. Local state is never mutated ahead of the server's answer.
func (s *lifecycleService) ConfirmOrder(ctx context.Context, order domain.Order) (OrderSnapshot, error) {
	if strings.TrimSpace(order.OrderNumber) == "" {
		return OrderSnapshot{}, fmt.Errorf("%w: order number is required", ErrLifecycleInvalidInput)
	}

	if err := s.gateway.UpdateOrderStatus(ctx, order.OrderNumber, domain.OrderStatusCompleted); err != nil {
		return OrderSnapshot{}, s.mapGatewayError(err)
	}
	return s.LoadOrder(ctx, order.ID)
}

// CancelOrder requests cancellation and reloads.
func (s *lifecycleService) CancelOrder(ctx context.Context, orderID int64) (OrderSnapshot, error) {
	if err := s.gateway.CancelOrder(ctx, orderID); err != nil {
		return OrderSnapshot{}, s.mapGatewayError(err)
	}
	return s.LoadOrder(ctx, orderID)
}

// RequestRefund validates, issues the payment reversal, then requests the
// REFUND_REQUESTED transition, strictly in that order. There is no
// compensating rollback when the second step fails after the first succeeds;
// the refund call carries an idempotency key so the pair can be re-attempted
// safely on the provider side.
func (s *lifecycleService) RequestRefund(ctx context.Context, cmd RefundCommand) (OrderSnapshot, error) {
	if strings.TrimSpace(cmd.Order.UserID) == "" {
		return OrderSnapshot{}, fmt.Errorf("%w: user id is required", ErrLifecycleInvalidInput)
	}
	if cmd.Amount <= 0 {
		return OrderSnapshot{}, fmt.Errorf("%w: refund amount must be positive", ErrLifecycleInvalidInput)
	}
	if strings.TrimSpace(cmd.Order.OrderNumber) == "" {
		return OrderSnapshot{}, fmt.Errorf("%w: order number is required", ErrLifecycleInvalidInput)
	}
	transactionID := cmd.Order.PrimaryTransactionID()
	if transactionID == "" {
		return OrderSnapshot{}, fmt.Errorf("%w: order has no payment transaction", ErrLifecycleInvalidInput)
	}
	if s.refunds == nil {
		return OrderSnapshot{}, errors.New("lifecycle service: refund provider not configured")
	}

	result, err := s.refunds.Refund(ctx, payments.RefundRequest{
		UserID:         cmd.Order.UserID,
		TransactionID:  transactionID,
		Amount:         cmd.Amount,
		Currency:       refundCurrency,
		Reason:         "requested_by_customer",
		IdempotencyKey: s.newID(),
		Metadata: map[string]string{
			"order_number": cmd.Order.OrderNumber,
		},
	})
	if err != nil {
		return OrderSnapshot{}, fmt.Errorf("lifecycle: refund issuance: %w", err)
	}

	s.logger(ctx, "order.refund.issued", map[string]any{
		"order_number": cmd.Order.OrderNumber,
		"refund_id":    result.ID,
		"amount":       result.Amount,
	})

	if err := s.gateway.UpdateOrderStatus(ctx, cmd.Order.OrderNumber, domain.OrderStatusRefundRequested); err != nil {
		// Known gap: the reversal went through but the status update failed.
		// Surfaced as one error; the idempotent refund makes a retry of the
		// whole sequence safe.
		s.logger(ctx, "order.refund.status_update_failed", map[string]any{
			"order_number": cmd.Order.OrderNumber,
			"refund_id":    result.ID,
			"error":        err.Error(),
		})
		return OrderSnapshot{}, s.mapGatewayError(err)
	}

	return s.LoadOrder(ctx, cmd.Order.ID)
}

func (s *lifecycleService) derive(ctx context.Context, order domain.Order) OrderSnapshot {
	view := domain.DeriveOrderView(order, s.clock())
	if !view.StatusKnown {
		s.logUnknownStatus(ctx, order)
	}
	return OrderSnapshot{Order: order, View: view}
}

func (s *lifecycleService) logUnknownStatus(ctx context.Context, order domain.Order) {
	s.logger(ctx, "order.status.unknown", map[string]any{
		"order_id": order.ID,
		"status":   string(order.Status),
	})
}

func (s *lifecycleService) mapGatewayError(err error) error {
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
