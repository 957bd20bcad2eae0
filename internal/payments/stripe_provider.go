package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey string
	Logger StripeLogger
	Clock  func() time.Time
	// Refunds overrides the live API binding; tests inject stubs here.
	Refunds stripeRefundAPI
}

// StripeProvider implements Provider over the Stripe refunds API.
type StripeProvider struct {
	refunds stripeRefundAPI
	clock   func() time.Time
	logger  StripeLogger
}

// NewStripeProvider constructs a Stripe-backed refund provider.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	refunds := cfg.Refunds
	if refunds == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, nil)
		refunds = sc.Refunds
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		refunds: refunds,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Refund issues a payment reversal against the original transaction. The
// idempotency key makes re-attempts of an interrupted refund sequence safe on
// the provider side.
func (p *StripeProvider) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if p == nil {
		return RefundResult{}, errors.New("stripe: provider is nil")
	}
	intentID := strings.TrimSpace(req.TransactionID)
	if intentID == "" {
		return RefundResult{}, fmt.Errorf("%w: transaction id is required", ErrRefundRejected)
	}
	if req.Amount <= 0 {
		return RefundResult{}, fmt.Errorf("%w: amount must be positive", ErrRefundRejected)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		params.Reason = stripe.String(reason)
	}
	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if userID := strings.TrimSpace(req.UserID); userID != "" {
		metadata["user_id"] = userID
	}
	if len(metadata) > 0 {
		params.Metadata = metadata
	}

	refund, err := p.refunds.New(params)
	if err != nil {
		p.logger(ctx, "stripe.refund.failed", map[string]any{
			"transaction_id": intentID,
			"amount":         req.Amount,
			"error":          err.Error(),
		})
		return RefundResult{}, fmt.Errorf("stripe: refund: %w", err)
	}

	result := RefundResult{
		ID:        refund.ID,
		Status:    mapRefundStatus(refund.Status),
		Amount:    refund.Amount,
		Currency:  strings.ToLower(string(refund.Currency)),
		CreatedAt: p.refundCreatedAt(refund),
	}

	p.logger(ctx, "stripe.refund.issued", map[string]any{
		"refund_id":      result.ID,
		"transaction_id": intentID,
		"amount":         result.Amount,
		"status":         string(result.Status),
	})

	if result.Status == StatusFailed {
		return result, fmt.Errorf("%w: provider reported failure", ErrRefundRejected)
	}
	return result, nil
}

func (p *StripeProvider) refundCreatedAt(refund *stripe.Refund) time.Time {
	if refund.Created > 0 {
		return time.Unix(refund.Created, 0).UTC()
	}
	return p.clock()
}

func mapRefundStatus(status stripe.RefundStatus) Status {
	switch status {
	case stripe.RefundStatusSucceeded:
		return StatusSucceeded
	case stripe.RefundStatusPending, stripe.RefundStatusRequiresAction:
		return StatusPending
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}
