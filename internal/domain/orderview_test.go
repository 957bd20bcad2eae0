package domain

import (
	"reflect"
	"testing"
	"time"
)

var baseNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func deliveredOrder(deliveredAt time.Time) Order {
	return Order{
		ID:          41,
		OrderNumber: "20250601120000-AB12CD34",
		UserID:      "user-1",
		Status:      OrderStatusDelivered,
		DeliveredAt: timePtr(deliveredAt),
	}
}

func TestDeriveOrderViewCancelledDisablesEverything(t *testing.T) {
	// Even with timestamps that would otherwise open windows.
	order := Order{
		Status:      OrderStatusCancelled,
		DeliveredAt: timePtr(baseNow.Add(-time.Hour)),
		CompletedAt: timePtr(baseNow.Add(-time.Hour)),
	}

	view := DeriveOrderView(order, baseNow)

	if view.Actions != (AllowedActions{}) {
		t.Fatalf("cancelled order actions = %+v, want none", view.Actions)
	}
	if view.AutoComplete {
		t.Fatal("cancelled order must not trigger auto-complete")
	}
	if view.TimelineStep != -1 {
		t.Fatalf("timeline step = %d, want -1", view.TimelineStep)
	}
}

func TestDeriveOrderViewDeliveredWithinGracePeriod(t *testing.T) {
	delivered := baseNow.Add(-(AutoCompleteWindow - 5*time.Hour - 30*time.Minute))
	view := DeriveOrderView(deliveredOrder(delivered), baseNow)

	if !view.Actions.Confirm {
		t.Fatal("confirm must be allowed while the grace period is open")
	}
	if view.Actions.Cancel {
		t.Fatal("delivered orders must not be cancellable")
	}
	if view.Actions.Refund {
		t.Fatal("refund must not be allowed before completion")
	}
	if view.AutoComplete {
		t.Fatal("auto-complete must not trigger inside the grace period")
	}
	if view.Countdown == nil {
		t.Fatal("expected a countdown")
	}
	if view.Countdown.Hours != 5 || view.Countdown.Minutes != 30 {
		t.Fatalf("countdown = %dh%dm, want 5h30m", view.Countdown.Hours, view.Countdown.Minutes)
	}
	if got := view.Countdown.String(); got != "5時間 30分" {
		t.Fatalf("countdown display = %q, want %q", got, "5時間 30分")
	}
}

func TestDeriveOrderViewAutoCompleteBoundary(t *testing.T) {
	cases := []struct {
		name         string
		sinceDeliver time.Duration
		autoComplete bool
		confirm      bool
		countdown    bool
	}{
		{"one ms before the deadline", AutoCompleteWindow - time.Millisecond, false, true, true},
		{"exactly at the deadline", AutoCompleteWindow, false, true, false},
		{"one ms past the deadline", AutoCompleteWindow + time.Millisecond, true, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := DeriveOrderView(deliveredOrder(baseNow.Add(-tc.sinceDeliver)), baseNow)
			if view.AutoComplete != tc.autoComplete {
				t.Fatalf("AutoComplete = %v, want %v", view.AutoComplete, tc.autoComplete)
			}
			if view.Actions.Confirm != tc.confirm {
				t.Fatalf("Confirm = %v, want %v", view.Actions.Confirm, tc.confirm)
			}
			if got := view.Countdown != nil; got != tc.countdown {
				t.Fatalf("countdown present = %v, want %v", got, tc.countdown)
			}
			// Display status stays DELIVERED until the transition lands.
			if view.Status != OrderStatusDelivered {
				t.Fatalf("status = %s, want DELIVERED", view.Status)
			}
		})
	}
}

func TestDeriveOrderViewRefundWindowBoundary(t *testing.T) {
	cases := []struct {
		name           string
		sinceCompleted time.Duration
		refund         bool
	}{
		{"inside the window", 24 * time.Hour, true},
		{"exactly at seven days", RefundWindow, true},
		{"one ms past seven days", RefundWindow + time.Millisecond, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := Order{
				Status:      OrderStatusCompleted,
				CompletedAt: timePtr(baseNow.Add(-tc.sinceCompleted)),
			}
			view := DeriveOrderView(order, baseNow)
			if view.Actions.Refund != tc.refund {
				t.Fatalf("Refund = %v, want %v", view.Actions.Refund, tc.refund)
			}
			if view.Actions.Confirm || view.Actions.Cancel {
				t.Fatalf("completed order allows %+v, want refund only", view.Actions)
			}
		})
	}
}

func TestDeriveOrderViewCompletedWithoutTimestampDisablesRefund(t *testing.T) {
	view := DeriveOrderView(Order{Status: OrderStatusCompleted}, baseNow)
	if view.Actions.Refund {
		t.Fatal("refund requires a completedAt timestamp")
	}
}

func TestDeriveOrderViewCancellableStatuses(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusShipped} {
		view := DeriveOrderView(Order{Status: status}, baseNow)
		if !view.Actions.Cancel {
			t.Fatalf("%s: cancel must be allowed", status)
		}
		if view.Actions.Confirm || view.Actions.Refund {
			t.Fatalf("%s: confirm/refund must be disabled, got %+v", status, view.Actions)
		}
	}
}

func TestDeriveOrderViewTerminalRefundStatuses(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusRefundRequested, OrderStatusRefunded, OrderStatusPartiallyRefunded} {
		view := DeriveOrderView(Order{Status: status}, baseNow)
		if view.Actions != (AllowedActions{}) {
			t.Fatalf("%s: actions = %+v, want none", status, view.Actions)
		}
		if view.TimelineStep != -2 {
			t.Fatalf("%s: timeline step = %d, want -2", status, view.TimelineStep)
		}
	}
}

func TestDeriveOrderViewUnknownStatus(t *testing.T) {
	view := DeriveOrderView(Order{Status: OrderStatus("MYSTERY")}, baseNow)
	if view.StatusKnown {
		t.Fatal("MYSTERY must not be a known status")
	}
	if view.Label != "不明" {
		t.Fatalf("label = %q, want 不明", view.Label)
	}
	if view.Actions != (AllowedActions{}) {
		t.Fatalf("unknown status actions = %+v, want none", view.Actions)
	}
}

func TestDeriveOrderViewIsPure(t *testing.T) {
	order := deliveredOrder(baseNow.Add(-26 * time.Hour))
	order.Items = []OrderItem{{UnitPrice: 1000, Quantity: 2}}

	first := DeriveOrderView(order, baseNow)
	second := DeriveOrderView(order, baseNow)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("derivation is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestComputeTotals(t *testing.T) {
	items := []OrderItem{
		{UnitPrice: 1000, Quantity: 2},
		{UnitPrice: 500, Quantity: 1},
	}

	totals := ComputeTotals(items)

	want := OrderTotals{Subtotal: 2500, Shipping: 600, Tax: 250, Total: 3350}
	if totals != want {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
}

func TestComputeTotalsEmptyOrder(t *testing.T) {
	totals := ComputeTotals(nil)
	if totals.Subtotal != 0 || totals.Tax != 0 {
		t.Fatalf("empty order subtotal/tax = %d/%d, want 0/0", totals.Subtotal, totals.Tax)
	}
	if totals.Shipping != ShippingFee {
		t.Fatalf("shipping = %d, want %d", totals.Shipping, ShippingFee)
	}
}

func TestComputeTotalsTaxFloors(t *testing.T) {
	// 15 yen subtotal -> 1.5 yen tax, floored to 1.
	totals := ComputeTotals([]OrderItem{{UnitPrice: 15, Quantity: 1}})
	if totals.Tax != 1 {
		t.Fatalf("tax = %d, want 1 (floored)", totals.Tax)
	}
}

func TestFormatYenGroupsDigits(t *testing.T) {
	if got := FormatYen(3350); got != "¥3,350" {
		t.Fatalf("FormatYen(3350) = %q, want ¥3,350", got)
	}
	if got := FormatYen(600); got != "¥600" {
		t.Fatalf("FormatYen(600) = %q, want ¥600", got)
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, ok := ParseOrderStatus(" delivered ")
	if !ok || status != OrderStatusDelivered {
		t.Fatalf("ParseOrderStatus(delivered) = %s, %v", status, ok)
	}
	status, ok = ParseOrderStatus("TELEPORTED")
	if ok {
		t.Fatal("TELEPORTED must not parse as known")
	}
	if status != OrderStatus("TELEPORTED") {
		t.Fatalf("unknown status must be carried verbatim, got %s", status)
	}
}

func TestTimeSlotLabel(t *testing.T) {
	label, ok := TimeSlotLabel("14:00")
	if !ok || label != "14-16時" {
		t.Fatalf("TimeSlotLabel(14:00) = %q, %v", label, ok)
	}
	if label, ok := TimeSlotLabel("08:00"); !ok || label != "午前中 (8-12時)" {
		t.Fatalf("TimeSlotLabel(08:00) = %q, %v", label, ok)
	}
	if _, ok := TimeSlotLabel("03:00"); ok {
		t.Fatal("03:00 is not a valid slot key")
	}
}
