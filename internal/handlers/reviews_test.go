package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/momiji-market/bff/internal/domain"
	"github.com/momiji-market/bff/internal/services"
)

type stubReviewService struct {
	createFn         func(ctx context.Context, cmd services.CreateReviewCommand) (domain.Review, error)
	listForProductFn func(ctx context.Context, productID int64) ([]domain.Review, error)
}

func (s *stubReviewService) Create(ctx context.Context, cmd services.CreateReviewCommand) (domain.Review, error) {
	return s.createFn(ctx, cmd)
}

func (s *stubReviewService) ListForProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	return s.listForProductFn(ctx, productID)
}

func newReviewRouter(svc services.ReviewService) http.Handler {
	return NewRouter(
		WithMiddlewares(ForwardBearerToken()),
		WithReviewRoutes(NewReviewHandlers(svc).Routes),
	)
}

func unsignedToken(t *testing.T, subject string) string {
	t.Helper()
	encode := func(v map[string]any) string {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	header := encode(map[string]any{"alg": "none", "typ": "JWT"})
	claims := encode(map[string]any{"sub": subject})
	return header + "." + claims + "."
}

func TestCreateReviewRequiresAuthentication(t *testing.T) {
	svc := &stubReviewService{
		createFn: func(ctx context.Context, cmd services.CreateReviewCommand) (domain.Review, error) {
			t.Error("service must not be called without a token")
			return domain.Review{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/10/reviews", bytes.NewBufferString(`{"orderId":42,"rating":5,"content":"良い"}`))
	rec := httptest.NewRecorder()
	newReviewRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateReviewForwardsTokenSubjectAndPathProduct(t *testing.T) {
	var captured services.CreateReviewCommand
	svc := &stubReviewService{
		createFn: func(ctx context.Context, cmd services.CreateReviewCommand) (domain.Review, error) {
			captured = cmd
			return domain.Review{ID: 7, ProductID: cmd.ProductID, Rating: cmd.Rating}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/10/reviews", bytes.NewBufferString(`{"orderId":42,"rating":5,"title":"良い急須","content":"お茶が美味しい"}`))
	req.Header.Set("Authorization", "Bearer "+unsignedToken(t, "user-1"))
	rec := httptest.NewRecorder()
	newReviewRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if captured.UserID != "user-1" {
		t.Errorf("userID = %q, want token subject", captured.UserID)
	}
	if captured.ProductID != 10 || captured.OrderID != 42 || captured.Rating != 5 {
		t.Errorf("command = %+v", captured)
	}
}

func TestCreateReviewMapsNotAllowed(t *testing.T) {
	svc := &stubReviewService{
		createFn: func(ctx context.Context, cmd services.CreateReviewCommand) (domain.Review, error) {
			return domain.Review{}, services.ErrReviewNotAllowed
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/10/reviews", bytes.NewBufferString(`{"orderId":42,"rating":5,"content":"x"}`))
	req.Header.Set("Authorization", "Bearer "+unsignedToken(t, "user-1"))
	rec := httptest.NewRecorder()
	newReviewRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListProductReviews(t *testing.T) {
	svc := &stubReviewService{
		listForProductFn: func(ctx context.Context, productID int64) ([]domain.Review, error) {
			if productID != 10 {
				t.Fatalf("productID = %d", productID)
			}
			return []domain.Review{{ID: 1, ProductID: 10, Rating: 4, Content: "丈夫です"}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/10/reviews", nil)
	rec := httptest.NewRecorder()
	newReviewRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload reviewListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].Content != "丈夫です" {
		t.Errorf("payload = %+v", payload)
	}
}
