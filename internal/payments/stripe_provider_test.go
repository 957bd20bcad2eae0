package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
)

type stubRefundAPI struct {
	newFn func(params *stripe.RefundParams) (*stripe.Refund, error)
}

func (s *stubRefundAPI) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	if s.newFn != nil {
		return s.newFn(params)
	}
	return &stripe.Refund{ID: "re_1", Status: stripe.RefundStatusSucceeded}, nil
}

func newTestProvider(t *testing.T, api *stubRefundAPI) *StripeProvider {
	t.Helper()
	provider, err := NewStripeProvider(StripeProviderConfig{
		Refunds: api,
		Clock: func() time.Time {
			return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider
}

func TestStripeRefundBuildsParams(t *testing.T) {
	var captured *stripe.RefundParams
	api := &stubRefundAPI{newFn: func(params *stripe.RefundParams) (*stripe.Refund, error) {
		captured = params
		return &stripe.Refund{
			ID:       "re_ok",
			Status:   stripe.RefundStatusSucceeded,
			Amount:   3350,
			Currency: stripe.CurrencyJPY,
			Created:  time.Date(2025, 6, 10, 12, 0, 1, 0, time.UTC).Unix(),
		}, nil
	}}
	provider := newTestProvider(t, api)

	result, err := provider.Refund(context.Background(), RefundRequest{
		UserID:         "user-1",
		TransactionID:  "pi_123",
		Amount:         3350,
		Currency:       "jpy",
		Reason:         "requested_by_customer",
		IdempotencyKey: "01HZX0000000000000000000KE",
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}

	if captured == nil {
		t.Fatal("refund API was not called")
	}
	if got := stripe.StringValue(captured.PaymentIntent); got != "pi_123" {
		t.Fatalf("payment intent = %q", got)
	}
	if got := stripe.Int64Value(captured.Amount); got != 3350 {
		t.Fatalf("amount = %d", got)
	}
	if captured.IdempotencyKey == nil || *captured.IdempotencyKey == "" {
		t.Fatal("idempotency key must be set")
	}
	if captured.Metadata["user_id"] != "user-1" {
		t.Fatalf("metadata = %v", captured.Metadata)
	}
	if result.Status != StatusSucceeded || result.ID != "re_ok" {
		t.Fatalf("result = %+v", result)
	}
}

func TestStripeRefundValidatesInput(t *testing.T) {
	provider := newTestProvider(t, &stubRefundAPI{newFn: func(*stripe.RefundParams) (*stripe.Refund, error) {
		t.Error("API must not be called for invalid input")
		return nil, nil
	}})

	if _, err := provider.Refund(context.Background(), RefundRequest{Amount: 100}); !errors.Is(err, ErrRefundRejected) {
		t.Fatalf("missing transaction id: err = %v", err)
	}
	if _, err := provider.Refund(context.Background(), RefundRequest{TransactionID: "pi_1", Amount: 0}); !errors.Is(err, ErrRefundRejected) {
		t.Fatalf("zero amount: err = %v", err)
	}
}

func TestStripeRefundMapsProviderFailure(t *testing.T) {
	provider := newTestProvider(t, &stubRefundAPI{newFn: func(*stripe.RefundParams) (*stripe.Refund, error) {
		return &stripe.Refund{ID: "re_bad", Status: stripe.RefundStatusFailed}, nil
	}})

	_, err := provider.Refund(context.Background(), RefundRequest{TransactionID: "pi_1", Amount: 100})
	if !errors.Is(err, ErrRefundRejected) {
		t.Fatalf("err = %v, want ErrRefundRejected", err)
	}
}

func TestStripeRefundWrapsTransportError(t *testing.T) {
	wire := errors.New("connection reset")
	provider := newTestProvider(t, &stubRefundAPI{newFn: func(*stripe.RefundParams) (*stripe.Refund, error) {
		return nil, wire
	}})

	_, err := provider.Refund(context.Background(), RefundRequest{TransactionID: "pi_1", Amount: 100})
	if !errors.Is(err, wire) {
		t.Fatalf("err = %v, want wrapped transport error", err)
	}
}
