package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/momiji-market/bff/internal/domain"
)

const defaultTimeout = 15 * time.Second

var tracer = otel.Tracer("github.com/momiji-market/bff/internal/storeapi")

// Client is the HTTP/JSON gateway to the remote commerce API. It owns no
// state beyond the connection pool; every response is decoded into fresh
// domain values.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
}

// Option customises the client during construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTokenSource sets the fallback token source used when the request
// context carries no per-request token.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.tokens = src
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New constructs a Client for the given API base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("storeapi: invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("storeapi: base url must be absolute, got %q", baseURL)
	}

	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// GetOrderDetail fetches one order snapshot.
func (c *Client) GetOrderDetail(ctx context.Context, orderID int64) (domain.Order, error) {
	var payload orderPayload
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), nil, &payload); err != nil {
		return domain.Order{}, err
	}
	return payload.toDomain(), nil
}

// ListOrders fetches the caller's order history.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var payloads []orderPayload
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &payloads); err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(payloads))
	for _, p := range payloads {
		orders = append(orders, p.toDomain())
	}
	return orders, nil
}

// UpdateOrderStatus requests a status transition by order number. The server
// is the authority on legality and stamps deliveredAt/completedAt itself; an
// already-applied transition is a no-op on the server side.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderNumber string, status domain.OrderStatus) error {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return fmt.Errorf("%w: order number is required", ErrInvalidInput)
	}
	body := map[string]string{"status": string(status)}
	path := fmt.Sprintf("/api/orders/%s/status", url.PathEscape(orderNumber))
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// CancelOrder requests cancellation of an order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/orders/%d/cancel", orderID), nil, nil)
}

// CreateReviewRequest is the payload for submitting a product review.
type CreateReviewRequest struct {
	ProductID int64
	OrderID   int64
	Rating    int
	Title     string
	Content   string
}

// CreateReview submits a review for a purchased product.
func (c *Client) CreateReview(ctx context.Context, req CreateReviewRequest) (domain.Review, error) {
	body := map[string]any{
		"orderId": req.OrderID,
		"rating":  req.Rating,
		"title":   req.Title,
		"content": req.Content,
	}
	var payload reviewPayload
	path := fmt.Sprintf("/api/products/%d/reviews", req.ProductID)
	if err := c.do(ctx, http.MethodPost, path, body, &payload); err != nil {
		return domain.Review{}, err
	}
	return payload.toDomain(), nil
}

// ListProductReviews fetches the published reviews for a product.
func (c *Client) ListProductReviews(ctx context.Context, productID int64) ([]domain.Review, error) {
	var payloads []reviewPayload
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d/reviews", productID), nil, &payloads); err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(payloads))
	for _, p := range payloads {
		reviews = append(reviews, p.toDomain())
	}
	return reviews, nil
}

// ListFavorites fetches the caller's wishlist as product ids.
func (c *Client) ListFavorites(ctx context.Context) ([]int64, error) {
	var payloads []favoritePayload
	if err := c.do(ctx, http.MethodGet, "/api/users/me/wishlist", nil, &payloads); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(payloads))
	for _, p := range payloads {
		ids = append(ids, p.ProductID)
	}
	return ids, nil
}

// AddFavorite puts a product on the caller's wishlist.
func (c *Client) AddFavorite(ctx context.Context, productID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/users/me/wishlist/%d", productID), nil, nil)
}

// RemoveFavorite removes a product from the caller's wishlist.
func (c *Client) RemoveFavorite(ctx context.Context, productID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/users/me/wishlist/%d", productID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	target := c.baseURL.JoinPath(path)

	ctx, span := tracer.Start(ctx, fmt.Sprintf("storeapi %s %s", method, path),
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", target.String()),
	)

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("storeapi: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("storeapi: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.token(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// Transport failure: transient, no automatic retry. The caller keeps
		// its last good snapshot.
		return fmt.Errorf("storeapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := errorFromResponse(resp)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return fmt.Errorf("storeapi: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if token, ok := tokenFromContext(ctx); ok {
		return token, nil
	}
	if c.tokens == nil {
		return "", nil
	}
	return c.tokens.Token(ctx)
}
