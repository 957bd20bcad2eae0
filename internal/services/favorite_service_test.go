package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type stubFavoriteGateway struct {
	listFavoritesFn  func(ctx context.Context) ([]int64, error)
	addFavoriteFn    func(ctx context.Context, productID int64) error
	removeFavoriteFn func(ctx context.Context, productID int64) error
}

func (s *stubFavoriteGateway) ListFavorites(ctx context.Context) ([]int64, error) {
	if s.listFavoritesFn != nil {
		return s.listFavoritesFn(ctx)
	}
	return nil, nil
}

func (s *stubFavoriteGateway) AddFavorite(ctx context.Context, productID int64) error {
	if s.addFavoriteFn != nil {
		return s.addFavoriteFn(ctx, productID)
	}
	return nil
}

func (s *stubFavoriteGateway) RemoveFavorite(ctx context.Context, productID int64) error {
	if s.removeFavoriteFn != nil {
		return s.removeFavoriteFn(ctx, productID)
	}
	return nil
}

func newFavoriteService(t *testing.T, gateway FavoriteGateway) FavoriteService {
	t.Helper()
	svc, err := NewFavoriteService(FavoriteDeps{Gateway: gateway})
	if err != nil {
		t.Fatalf("new favorite service: %v", err)
	}
	return svc
}

func TestFavoriteListFetchesOncePerUser(t *testing.T) {
	var calls int
	gateway := &stubFavoriteGateway{
		listFavoritesFn: func(ctx context.Context) ([]int64, error) {
			calls++
			return []int64{10, 20}, nil
		},
	}
	svc := newFavoriteService(t, gateway)

	for i := 0; i < 3; i++ {
		ids, err := svc.List(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !reflect.DeepEqual(ids, []int64{10, 20}) {
			t.Fatalf("ids = %v", ids)
		}
	}
	if calls != 1 {
		t.Fatalf("gateway calls = %d, want 1", calls)
	}
}

func TestFavoriteListIsolatesUsers(t *testing.T) {
	wishlists := map[string][]int64{
		"alice": {101, 102},
		"bob":   {999},
	}
	var calls int
	var current string
	gateway := &stubFavoriteGateway{
		listFavoritesFn: func(ctx context.Context) ([]int64, error) {
			calls++
			return wishlists[current], nil
		},
	}
	svc := newFavoriteService(t, gateway)

	current = "alice"
	aliceIDs, err := svc.List(context.Background(), "alice")
	if err != nil {
		t.Fatalf("list alice: %v", err)
	}
	if !reflect.DeepEqual(aliceIDs, []int64{101, 102}) {
		t.Fatalf("alice ids = %v", aliceIDs)
	}

	current = "bob"
	bobIDs, err := svc.List(context.Background(), "bob")
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if !reflect.DeepEqual(bobIDs, []int64{999}) {
		t.Fatalf("bob ids = %v, must never see another user's wishlist", bobIDs)
	}
	if calls != 2 {
		t.Fatalf("gateway calls = %d, want one fetch per user", calls)
	}
}

func TestFavoriteToggleDoesNotLeakAcrossUsers(t *testing.T) {
	gateway := &stubFavoriteGateway{
		listFavoritesFn: func(ctx context.Context) ([]int64, error) { return nil, nil },
	}
	svc := newFavoriteService(t, gateway)
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, "alice", 55, true); err != nil {
		t.Fatalf("toggle alice: %v", err)
	}

	bobIDs, err := svc.List(ctx, "bob")
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if len(bobIDs) != 0 {
		t.Fatalf("bob ids = %v, alice's toggle leaked", bobIDs)
	}
}

func TestFavoriteRequiresUserID(t *testing.T) {
	gateway := &stubFavoriteGateway{
		listFavoritesFn: func(ctx context.Context) ([]int64, error) {
			t.Error("gateway must not be called without a user")
			return nil, nil
		},
	}
	svc := newFavoriteService(t, gateway)

	if _, err := svc.List(context.Background(), ""); !errors.Is(err, ErrLifecycleInvalidInput) {
		t.Fatalf("list err = %v", err)
	}
	if _, err := svc.Toggle(context.Background(), "", 10, true); !errors.Is(err, ErrLifecycleInvalidInput) {
		t.Fatalf("toggle err = %v", err)
	}
}

func TestFavoriteToggleAddAppliesLocallyThenCallsAPI(t *testing.T) {
	var order []string
	gateway := &stubFavoriteGateway{
		listFavoritesFn: func(ctx context.Context) ([]int64, error) { return []int64{10}, nil },
		addFavoriteFn: func(ctx context.Context, productID int64) error {
			order = append(order, "api")
			return nil
		},
	}
	svc := newFavoriteService(t, gateway)
	if _, err := svc.List(context.Background(), "user-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ids, err := svc.Toggle(context.Background(), "user-1", 20, true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{10, 20}) {
		t.Fatalf("ids = %v", ids)
	}
	if len(order) != 1 {
		t.Fatalf("api calls = %v", order)
	}
}

func TestFavoriteToggleRollsBackOnFailure(t *testing.T) {
	boom := errors.New("upstream 500")
	gateway := &stubFavoriteGateway{
		listFavoritesFn:  func(ctx context.Context) ([]int64, error) { return []int64{10, 20}, nil },
		removeFavoriteFn: func(ctx context.Context, productID int64) error { return boom },
	}
	svc := newFavoriteService(t, gateway)
	if _, err := svc.List(context.Background(), "user-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ids, err := svc.Toggle(context.Background(), "user-1", 20, false)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{10, 20}) {
		t.Fatalf("ids = %v, want rollback to pre-toggle state", ids)
	}

	after, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(after, []int64{10, 20}) {
		t.Fatalf("after = %v", after)
	}
}

func TestFavoriteToggleIsIdempotentPerDirection(t *testing.T) {
	gateway := &stubFavoriteGateway{
		listFavoritesFn: func(ctx context.Context) ([]int64, error) { return []int64{10}, nil },
	}
	svc := newFavoriteService(t, gateway)
	if _, err := svc.List(context.Background(), "user-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ids, err := svc.Toggle(context.Background(), "user-1", 10, true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{10}) {
		t.Fatalf("ids = %v, want no duplicate", ids)
	}

	ids, err = svc.Toggle(context.Background(), "user-1", 99, false)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{10}) {
		t.Fatalf("ids = %v, want unchanged", ids)
	}
}
