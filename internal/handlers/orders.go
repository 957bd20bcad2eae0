package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/momiji-market/bff/internal/domain"
	"github.com/momiji-market/bff/internal/platform/httpx"
	"github.com/momiji-market/bff/internal/services"
)

const maxOrderBodySize = 4 * 1024

type refundOrderRequest struct {
	// Amount is the yen amount to return. When omitted the recomputed order
	// total is refunded in full.
	Amount *int64 `json:"amount"`
}

// OrderHandlers exposes the order lifecycle endpoints.
type OrderHandlers struct {
	lifecycle services.OrderLifecycleService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(lifecycle services.OrderLifecycleService) *OrderHandlers {
	return &OrderHandlers{lifecycle: lifecycle}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}:confirm", h.confirmOrder)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Post("/{orderID}:refund", h.refundOrder)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	snapshots, err := h.lifecycle.ListOrders(ctx)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(snapshots))
	for _, snapshot := range snapshots {
		items = append(items, buildOrderSummary(snapshot))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Items: items})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := parseOrderID(ctx, w, r)
	if !ok {
		return
	}

	snapshot, err := h.lifecycle.LoadOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetail(snapshot))
}

func (h *OrderHandlers) confirmOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := parseOrderID(ctx, w, r)
	if !ok {
		return
	}

	snapshot, err := h.lifecycle.LoadOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if !snapshot.View.Actions.Confirm {
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", "order cannot be confirmed in its current state", http.StatusConflict))
		return
	}

	confirmed, err := h.lifecycle.ConfirmOrder(ctx, snapshot.Order)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetail(confirmed))
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := parseOrderID(ctx, w, r)
	if !ok {
		return
	}

	snapshot, err := h.lifecycle.LoadOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if !snapshot.View.Actions.Cancel {
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", "order cannot be cancelled in its current state", http.StatusConflict))
		return
	}

	cancelled, err := h.lifecycle.CancelOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetail(cancelled))
}

func (h *OrderHandlers) refundOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.lifecycle == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID, ok := parseOrderID(ctx, w, r)
	if !ok {
		return
	}

	var req refundOrderRequest
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxOrderBodySize))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
			return
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
				return
			}
		}
	}

	snapshot, err := h.lifecycle.LoadOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if !snapshot.View.Actions.Refund {
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", "order is outside the refund window", http.StatusConflict))
		return
	}

	amount := snapshot.View.Totals.Total
	if req.Amount != nil {
		amount = *req.Amount
	}

	refunded, err := h.lifecycle.RequestRefund(ctx, services.RefundCommand{
		Order:  snapshot.Order,
		Amount: amount,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderDetail(refunded))
}

func parseOrderID(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if raw == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id must be a positive integer", http.StatusBadRequest))
		return 0, false
	}
	return id, true
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrLifecycleInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("upstream_error", "failed to process order request", http.StatusBadGateway))
	}
}

type orderListResponse struct {
	Items []orderSummaryPayload `json:"items"`
}

type orderSummaryPayload struct {
	ID           int64  `json:"id"`
	OrderNumber  string `json:"orderNumber"`
	Status       string `json:"status"`
	StatusLabel  string `json:"statusLabel"`
	BadgeTone    string `json:"badgeTone"`
	ItemCount    int    `json:"itemCount"`
	Total        int64  `json:"total"`
	TotalDisplay string `json:"totalDisplay"`
	CreatedAt    string `json:"createdAt"`
}

type orderActionsPayload struct {
	Cancel  bool `json:"cancel"`
	Confirm bool `json:"confirm"`
	Refund  bool `json:"refund"`
}

type orderCountdownPayload struct {
	Hours   int64  `json:"hours"`
	Minutes int64  `json:"minutes"`
	Display string `json:"display"`
}

type orderTotalsPayload struct {
	Subtotal     int64  `json:"subtotal"`
	Shipping     int64  `json:"shipping"`
	Tax          int64  `json:"tax"`
	Total        int64  `json:"total"`
	TotalDisplay string `json:"totalDisplay"`
}

type orderItemPayload struct {
	ProductID       int64  `json:"productId"`
	ProductName     string `json:"productName"`
	ProductImageURL string `json:"productImageUrl,omitempty"`
	UnitPrice       int64  `json:"unitPrice"`
	Quantity        int64  `json:"quantity"`
}

type orderDetailPayload struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"orderNumber"`

	Status       string `json:"status"`
	StatusKnown  bool   `json:"statusKnown"`
	StatusLabel  string `json:"statusLabel"`
	Icon         string `json:"icon,omitempty"`
	BadgeTone    string `json:"badgeTone,omitempty"`
	TimelineStep int    `json:"timelineStep"`

	Actions   orderActionsPayload    `json:"actions"`
	Countdown *orderCountdownPayload `json:"confirmCountdown,omitempty"`

	Items  []orderItemPayload `json:"items"`
	Totals orderTotalsPayload `json:"totals"`

	CreatedAt   string `json:"createdAt"`
	DeliveredAt string `json:"deliveredAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`

	RequestedDeliveryAt   string `json:"requestedDeliveryAt,omitempty"`
	RequestedDeliveryTime string `json:"requestedDeliveryTime,omitempty"`
}

func buildOrderSummary(snapshot services.OrderSnapshot) orderSummaryPayload {
	order := snapshot.Order
	view := snapshot.View
	return orderSummaryPayload{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		Status:       string(view.Status),
		StatusLabel:  view.Label,
		BadgeTone:    view.BadgeTone,
		ItemCount:    len(order.Items),
		Total:        view.Totals.Total,
		TotalDisplay: domain.FormatYen(view.Totals.Total),
		CreatedAt:    formatTimestamp(order.CreatedAt),
	}
}

func buildOrderDetail(snapshot services.OrderSnapshot) orderDetailPayload {
	order := snapshot.Order
	view := snapshot.View

	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			ProductImageURL: item.ProductImageURL,
			UnitPrice:       item.UnitPrice,
			Quantity:        item.Quantity,
		})
	}

	payload := orderDetailPayload{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		Status:       string(view.Status),
		StatusKnown:  view.StatusKnown,
		StatusLabel:  view.Label,
		Icon:         view.Icon,
		BadgeTone:    view.BadgeTone,
		TimelineStep: view.TimelineStep,
		Actions: orderActionsPayload{
			Cancel:  view.Actions.Cancel,
			Confirm: view.Actions.Confirm,
			Refund:  view.Actions.Refund,
		},
		Items: items,
		Totals: orderTotalsPayload{
			Subtotal:     view.Totals.Subtotal,
			Shipping:     view.Totals.Shipping,
			Tax:          view.Totals.Tax,
			Total:        view.Totals.Total,
			TotalDisplay: domain.FormatYen(view.Totals.Total),
		},
		CreatedAt: formatTimestamp(order.CreatedAt),
	}

	if view.Countdown != nil {
		payload.Countdown = &orderCountdownPayload{
			Hours:   view.Countdown.Hours,
			Minutes: view.Countdown.Minutes,
			Display: view.Countdown.String(),
		}
	}
	if order.DeliveredAt != nil {
		payload.DeliveredAt = formatTimestamp(*order.DeliveredAt)
	}
	if order.CompletedAt != nil {
		payload.CompletedAt = formatTimestamp(*order.CompletedAt)
	}
	if order.RequestedDeliveryAt != nil {
		payload.RequestedDeliveryAt = formatTimestamp(*order.RequestedDeliveryAt)
	}
	if slot := order.RequestedTimeSlot; slot != "" {
		if label, ok := domain.TimeSlotLabel(slot); ok {
			payload.RequestedDeliveryTime = label
		} else {
			payload.RequestedDeliveryTime = slot
		}
	}

	return payload
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
