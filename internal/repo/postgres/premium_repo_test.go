package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
)

func TestPremiumRepoWithoutPool(t *testing.T) {
	repo := NewPremiumRepo(nil)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "u1"); !errors.Is(err, ErrPremiumNotFound) {
		t.Fatalf("expected ErrPremiumNotFound, got %v", err)
	}
	if err := repo.Upsert(ctx, "u1", model.ResolvedPremiumState{}, "test", time.Now()); err != nil {
		t.Fatalf("upsert without pool: %v", err)
	}
	if _, err := repo.Get(ctx, " "); err == nil {
		t.Fatalf("expected blank uid to be rejected")
	}
}

func TestPurchaseTokenRepoWithoutPoolOwnsForCaller(t *testing.T) {
	owner, err := NewPurchaseTokenRepo(nil).Claim(context.Background(), PurchaseTokenClaim{PurchaseToken: "tok", UID: "u1"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if owner != "u1" {
		t.Fatalf("unexpected owner %q", owner)
	}
}

func TestNormalizeTimesConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2025, 1, 1, 3, 0, 0, 0, loc)
	state := model.ResolvedPremiumState{ExpiresAt: &ts}
	normalizeTimes(&state)
	if state.ExpiresAt.Location() != time.UTC || state.ExpiresAt.Hour() != 0 {
		t.Fatalf("unexpected time %v", state.ExpiresAt)
	}
}

func TestPruneHistoryWithoutPool(t *testing.T) {
	deleted, err := NewPremiumRepo(nil).PruneHistoryOlderThan(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("prune without pool: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected nothing deleted, got %d", deleted)
	}
}
