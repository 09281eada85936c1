package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
)

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mini.Close()
	})
	return mini, client
}

func TestPremiumCacheRoundTripAndExpiry(t *testing.T) {
	mini, client := newMiniRedisClient(t)
	repo := NewPremiumCacheRepo(client, time.Minute)
	ctx := context.Background()

	productID := "premium_unlock"
	purchaseAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state := model.ResolvedPremiumState{
		EntitlementType: enums.EntitlementTypeLifetime,
		IsPremium:       true,
		ProductID:       &productID,
		PurchaseAt:      &purchaseAt,
	}

	if err := repo.Set(ctx, "u1", state); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := repo.Get(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !got.Equivalent(state) {
		t.Fatalf("unexpected cached state: %+v", got)
	}

	mini.FastForward(2 * time.Minute)
	if _, ok, err := repo.Get(ctx, "u1"); err != nil || ok {
		t.Fatalf("expected expired entry, ok=%v err=%v", ok, err)
	}
}

func TestPremiumCacheDropsCorruptEntries(t *testing.T) {
	mini, client := newMiniRedisClient(t)
	repo := NewPremiumCacheRepo(client, time.Minute)

	if err := mini.Set(premiumKey("u2"), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok, err := repo.Get(context.Background(), "u2"); err != nil || ok {
		t.Fatalf("corrupt entry must be a miss, ok=%v err=%v", ok, err)
	}
	if mini.Exists(premiumKey("u2")) {
		t.Fatalf("corrupt entry must be deleted")
	}
}

func TestPremiumCacheDelete(t *testing.T) {
	_, client := newMiniRedisClient(t)
	repo := NewPremiumCacheRepo(client, 0)
	ctx := context.Background()

	if err := repo.Set(ctx, "u3", model.ResolvedPremiumState{EntitlementType: enums.EntitlementTypeNone}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Delete(ctx, "u3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "u3"); ok {
		t.Fatalf("expected miss after delete")
	}
}
