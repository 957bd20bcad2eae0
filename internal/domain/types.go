package domain

import (
	"strings"
	"time"
)

// OrderStatus enumerates the lifecycle states reported by the commerce API.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was accepted and awaits processing.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusProcessing indicates the order is being prepared for shipment.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped indicates the order left the warehouse.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered indicates the carrier reported delivery.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCompleted indicates the purchase was confirmed, explicitly or
	// by the post-delivery grace period elapsing.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled indicates the order was cancelled before shipment.
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusRefundRequested indicates a refund was filed and awaits settlement.
	OrderStatusRefundRequested OrderStatus = "REFUND_REQUESTED"
	// OrderStatusRefunded indicates the full amount was returned.
	OrderStatusRefunded OrderStatus = "REFUNDED"
	// OrderStatusPartiallyRefunded indicates part of the amount was returned.
	OrderStatusPartiallyRefunded OrderStatus = "PARTIALLY_REFUNDED"
)

var knownOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:           {},
	OrderStatusProcessing:        {},
	OrderStatusShipped:           {},
	OrderStatusDelivered:         {},
	OrderStatusCompleted:         {},
	OrderStatusCancelled:         {},
	OrderStatusRefundRequested:   {},
	OrderStatusRefunded:          {},
	OrderStatusPartiallyRefunded: {},
}

// ParseOrderStatus normalises a raw status value from the API. The second
// return reports whether the status is one the client understands; unknown
// values are carried through verbatim so they can still be rendered and logged.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := knownOrderStatuses[status]
	return status, ok
}

// Known reports whether the status is part of the supported lifecycle.
func (s OrderStatus) Known() bool {
	_, ok := knownOrderStatuses[s]
	return ok
}

// OrderItem is a single purchased line item. Prices are integer yen.
type OrderItem struct {
	ID              int64
	ProductID       int64
	ProductName     string
	ProductImageURL string
	UnitPrice       int64
	Quantity        int64
}

// Payment records a settlement attached to an order, as reported by the API.
type Payment struct {
	ID            int64
	TransactionID string
	Method        string
	Status        string
	Amount        int64
	RefundAmount  int64
	CreatedAt     time.Time
}

// Order is the transient snapshot of a remote order. The commerce API owns the
// record; this copy lives only as long as the view that fetched it.
type Order struct {
	ID          int64
	OrderNumber string
	UserID      string
	Status      OrderStatus

	Items    []OrderItem
	Payments []Payment

	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeliveredAt *time.Time
	CompletedAt *time.Time

	RequestedDeliveryAt *time.Time
	RequestedTimeSlot   string
}

// PrimaryTransactionID returns the transaction id of the first recorded
// payment, or "" when the order carries no payment information.
func (o Order) PrimaryTransactionID() string {
	for _, p := range o.Payments {
		if id := strings.TrimSpace(p.TransactionID); id != "" {
			return id
		}
	}
	return ""
}

// Review is a product review forwarded to the commerce API.
type Review struct {
	ID        int64
	ProductID int64
	OrderID   int64
	UserID    string
	Rating    int
	Title     string
	Content   string
	CreatedAt time.Time
}
