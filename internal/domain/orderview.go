package domain

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// AutoCompleteWindow is the grace period after delivery. Once it elapses
	// the order is confirmed automatically on the next load.
	AutoCompleteWindow = 3 * 24 * time.Hour
	// RefundWindow is how long after confirmation a refund request is accepted.
	// The boundary is inclusive: a request filed exactly at the deadline passes.
	RefundWindow = 7 * 24 * time.Hour

	// ShippingFee is the flat per-order shipping fee in yen.
	ShippingFee int64 = 600

	// taxRatePercent is the consumption tax applied to the subtotal.
	taxRatePercent int64 = 10

	unknownStatusLabel = "不明"
)

// AllowedActions is the set of order mutations the UI may offer. It is a pure
// function of (status, deliveredAt, completedAt, now); nothing else feeds it.
type AllowedActions struct {
	Cancel  bool
	Confirm bool
	Refund  bool
}

// Countdown is the time remaining until automatic confirmation, floored to
// whole hours and minutes.
type Countdown struct {
	Hours   int64
	Minutes int64
}

// String renders the countdown the way the storefront displays it.
func (c Countdown) String() string {
	return fmt.Sprintf("%d時間 %d分", c.Hours, c.Minutes)
}

// OrderTotals is the payment breakdown recomputed from line items. The server
// total is deliberately ignored so the figures always match the itemised list
// shown next to them.
type OrderTotals struct {
	Subtotal int64
	Shipping int64
	Tax      int64
	Total    int64
}

// OrderView is the derived, render-ready state of one order. It is recomputed
// on every load and never persisted.
type OrderView struct {
	Status      OrderStatus
	StatusKnown bool

	Label        string
	Icon         string
	BadgeTone    string
	TimelineStep int

	Actions AllowedActions

	// AutoComplete signals that the post-delivery grace period has elapsed and
	// the caller should request the DELIVERED -> COMPLETED transition. The
	// engine never performs the transition itself.
	AutoComplete bool
	Countdown    *Countdown

	Totals OrderTotals
}

type statusPresentation struct {
	label string
	icon  string
	tone  string
	step  int
}

// Timeline steps 1..5 walk the happy path; negative steps replace the
// timeline with a terminal banner.
var orderStatusPresentation = map[OrderStatus]statusPresentation{
	OrderStatusPending:           {label: "注文受付", icon: "credit-card", tone: "warning", step: 1},
	OrderStatusProcessing:        {label: "商品準備中", icon: "box", tone: "warning", step: 2},
	OrderStatusShipped:           {label: "発送済み", icon: "truck", tone: "info", step: 3},
	OrderStatusDelivered:         {label: "配達完了", icon: "check-circle", tone: "purple", step: 4},
	OrderStatusCompleted:         {label: "購入確定", icon: "star", tone: "success", step: 5},
	OrderStatusCancelled:         {label: "注文キャンセル", icon: "times-circle", tone: "danger", step: -1},
	OrderStatusRefundRequested:   {label: "返金申請中", icon: "undo", tone: "warning", step: -2},
	OrderStatusRefunded:          {label: "返金完了", icon: "undo", tone: "neutral", step: -2},
	OrderStatusPartiallyRefunded: {label: "一部返金", icon: "undo", tone: "neutral", step: -2},
}

// DeriveOrderView computes the render state for an order at the given instant.
// It is pure: identical inputs yield identical outputs, and the 3-day and
// 7-day windows are exact millisecond arithmetic against the stored
// timestamps, not calendar days.
func DeriveOrderView(order Order, now time.Time) OrderView {
	view := OrderView{
		Status: order.Status,
		Totals: ComputeTotals(order.Items),
	}

	pres, known := orderStatusPresentation[order.Status]
	view.StatusKnown = known
	if !known {
		// Unrecognised status: render as unknown with every action disabled.
		// The caller is expected to log the value; derivation stays pure.
		view.Label = unknownStatusLabel
		return view
	}
	view.Label = pres.label
	view.Icon = pres.icon
	view.BadgeTone = pres.tone
	view.TimelineStep = pres.step

	switch order.Status {
	case OrderStatusCancelled:
		// Terminal. Nothing is allowed regardless of timestamps.

	case OrderStatusDelivered:
		if order.DeliveredAt == nil {
			// Delivered without a timestamp: the grace period cannot be
			// evaluated, so only explicit confirmation is offered.
			view.Actions.Confirm = true
			break
		}
		deadline := order.DeliveredAt.Add(AutoCompleteWindow)
		if now.After(deadline) {
			view.AutoComplete = true
			break
		}
		view.Actions.Confirm = true
		if left := deadline.Sub(now); left > 0 {
			view.Countdown = newCountdown(left)
		}

	case OrderStatusCompleted:
		view.Actions.Refund = order.CompletedAt != nil &&
			!now.After(order.CompletedAt.Add(RefundWindow))

	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped:
		view.Actions.Cancel = true
	}

	return view
}

// ComputeTotals rebuilds the payment breakdown from the line items.
func ComputeTotals(items []OrderItem) OrderTotals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPrice * item.Quantity
	}
	tax := subtotal * taxRatePercent / 100
	return OrderTotals{
		Subtotal: subtotal,
		Shipping: ShippingFee,
		Tax:      tax,
		Total:    subtotal + ShippingFee + tax,
	}
}

func newCountdown(left time.Duration) *Countdown {
	return &Countdown{
		Hours:   int64(left / time.Hour),
		Minutes: int64(left % time.Hour / time.Minute),
	}
}

var yenPrinter = message.NewPrinter(language.Japanese)

// FormatYen renders an amount the way the storefront prints prices: a yen
// sign followed by the grouped figure, e.g. ¥3,350.
func FormatYen(amount int64) string {
	return yenPrinter.Sprintf("¥%d", amount)
}
