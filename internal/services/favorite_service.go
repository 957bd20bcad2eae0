package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FavoriteDeps bundles collaborators for the favorite service.
type FavoriteDeps struct {
	Gateway FavoriteGateway
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

// favoriteService keeps an in-memory copy of each user's wishlist and toggles
// it optimistically: the local set changes first, the API call follows, and a
// failure rolls the set back. This is the one place local state may run ahead
// of the server; a flipped heart icon is cheap to revert.
//
// Entries are keyed by user. The service lives for the process, the requests
// it serves do not, so a single shared set would leak one caller's wishlist
// to every other caller.
type favoriteService struct {
	gateway FavoriteGateway
	logger  func(context.Context, string, map[string]any)

	mu      sync.Mutex
	entries map[string]*favoriteEntry
}

type favoriteEntry struct {
	ids    []int64
	loaded bool
}

// NewFavoriteService wires dependencies into a FavoriteService.
func NewFavoriteService(deps FavoriteDeps) (FavoriteService, error) {
	if deps.Gateway == nil {
		return nil, errors.New("favorite service: gateway is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &favoriteService{
		gateway: deps.Gateway,
		logger:  logger,
		entries: make(map[string]*favoriteEntry),
	}, nil
}

// List returns the user's wishlist, fetching it on first use.
func (s *favoriteService) List(ctx context.Context, userID string) ([]int64, error) {
	entry, err := s.lockEntry(userID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if !entry.loaded {
		ids, err := s.gateway.ListFavorites(ctx)
		if err != nil {
			return nil, err
		}
		entry.ids = ids
		entry.loaded = true
	}
	return copyIDs(entry.ids), nil
}

// Toggle flips the wishlist membership of a product for the user. The returned
// slice is the state after the toggle, which on failure equals the state
// before it.
func (s *favoriteService) Toggle(ctx context.Context, userID string, productID int64, favorited bool) ([]int64, error) {
	entry, err := s.lockEntry(userID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	previous := copyIDs(entry.ids)

	if favorited {
		entry.ids = appendID(entry.ids, productID)
	} else {
		entry.ids = removeID(entry.ids, productID)
	}

	if favorited {
		err = s.gateway.AddFavorite(ctx, productID)
	} else {
		err = s.gateway.RemoveFavorite(ctx, productID)
	}
	if err != nil {
		entry.ids = previous
		s.logger(ctx, "favorite.toggle.rolled_back", map[string]any{
			"user_id":    userID,
			"product_id": productID,
			"favorited":  favorited,
			"error":      err.Error(),
		})
		return copyIDs(entry.ids), err
	}

	return copyIDs(entry.ids), nil
}

// lockEntry validates the user, acquires the service lock, and returns the
// user's cache entry. The caller owns the unlock on the nil-error path.
func (s *favoriteService) lockEntry(userID string) (*favoriteEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrLifecycleInvalidInput)
	}
	s.mu.Lock()
	entry, ok := s.entries[userID]
	if !ok {
		entry = &favoriteEntry{}
		s.entries[userID] = entry
	}
	return entry, nil
}

func copyIDs(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

func appendID(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
