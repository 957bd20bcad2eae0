package payments

import (
	"context"
	"errors"
	"time"
)

// Status normalises refund states across providers.
type Status string

const (
	// StatusPending indicates the provider accepted the refund and is processing it.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the funds were returned.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the provider rejected or failed the refund.
	StatusFailed Status = "failed"
)

// ErrRefundRejected is returned when the provider refuses the refund outright.
var ErrRefundRejected = errors.New("payments: refund rejected")

// RefundRequest describes one payment reversal. Amount is in the smallest
// currency unit (yen has no minor unit, so it is the yen amount as-is).
type RefundRequest struct {
	UserID         string
	TransactionID  string
	Amount         int64
	Currency       string
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
}

// RefundResult reports the provider's view of the refund.
type RefundResult struct {
	ID        string
	Status    Status
	Amount    int64
	Currency  string
	CreatedAt time.Time
}

// Provider is the payment-reversal collaborator. It is independent of the
// order-status update that follows it; callers sequence the two.
type Provider interface {
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
}
