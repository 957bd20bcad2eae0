package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/momiji-market/bff/internal/platform/httpx"
	"github.com/momiji-market/bff/internal/services"
	"github.com/momiji-market/bff/internal/storeapi"
)

// FavoriteHandlers exposes the authenticated user's wishlist endpoints.
type FavoriteHandlers struct {
	favorites services.FavoriteService
}

// NewFavoriteHandlers constructs a new FavoriteHandlers instance.
func NewFavoriteHandlers(favorites services.FavoriteService) *FavoriteHandlers {
	return &FavoriteHandlers{favorites: favorites}
}

// Routes registers the /me/favorites endpoints. PUT adds a product to the
// wishlist, DELETE removes it; both return the wishlist after the toggle.
func (h *FavoriteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listFavorites)
	r.Put("/{productID}", h.addFavorite)
	r.Delete("/{productID}", h.removeFavorite)
}

func (h *FavoriteHandlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.favorites == nil {
		httpx.WriteError(ctx, w, httpx.NewError("favorite_service_unavailable", "favorite service unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := UserIDFromContext(ctx)
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	ids, err := h.favorites.List(ctx, userID)
	if err != nil {
		writeFavoriteError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, favoriteListResponse{ProductIDs: ids})
}

func (h *FavoriteHandlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, true)
}

func (h *FavoriteHandlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFavorite(w, r, false)
}

func (h *FavoriteHandlers) toggleFavorite(w http.ResponseWriter, r *http.Request, favorited bool) {
	ctx := r.Context()
	if h.favorites == nil {
		httpx.WriteError(ctx, w, httpx.NewError("favorite_service_unavailable", "favorite service unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := UserIDFromContext(ctx)
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	raw := strings.TrimSpace(chi.URLParam(r, "productID"))
	productID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || productID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id must be a positive integer", http.StatusBadRequest))
		return
	}

	ids, err := h.favorites.Toggle(ctx, userID, productID, favorited)
	if err != nil {
		writeFavoriteError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, favoriteListResponse{ProductIDs: ids})
}

// writeFavoriteError maps wishlist failures onto the shared error taxonomy.
// The service forwards remote API failures unmapped, so both the service
// sentinels and the upstream sentinels are handled here.
func writeFavoriteError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrLifecycleInvalidInput), errors.Is(err, storeapi.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid wishlist request", http.StatusBadRequest))
	case errors.Is(err, storeapi.ErrUnauthorized):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
	case errors.Is(err, storeapi.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, storeapi.ErrConflict):
		httpx.WriteError(ctx, w, httpx.NewError("favorite_conflict", "wishlist was modified concurrently", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("upstream_error", "failed to process wishlist request", http.StatusBadGateway))
	}
}

type favoriteListResponse struct {
	ProductIDs []int64 `json:"productIds"`
}
