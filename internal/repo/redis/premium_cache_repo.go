package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
)

const premiumPrefix = "premium:"

type PremiumCacheRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPremiumCacheRepo(client *goredis.Client, ttl time.Duration) *PremiumCacheRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PremiumCacheRepo{client: client, ttl: ttl}
}

// Get returns the cached state for uid; ok is false on a miss.
func (r *PremiumCacheRepo) Get(ctx context.Context, uid string) (model.ResolvedPremiumState, bool, error) {
	if r.client == nil {
		return model.ResolvedPremiumState{}, false, nil
	}

	raw, err := r.client.Get(ctx, premiumKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return model.ResolvedPremiumState{}, false, nil
		}
		return model.ResolvedPremiumState{}, false, fmt.Errorf("get cached premium state: %w", err)
	}

	var state model.ResolvedPremiumState
	if err := json.Unmarshal(raw, &state); err != nil {
		_ = r.client.Del(ctx, premiumKey(uid)).Err()
		return model.ResolvedPremiumState{}, false, nil
	}
	return state, true, nil
}

func (r *PremiumCacheRepo) Set(ctx context.Context, uid string, state model.ResolvedPremiumState) error {
	if r.client == nil {
		return nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode premium state: %w", err)
	}
	if err := r.client.Set(ctx, premiumKey(uid), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache premium state: %w", err)
	}
	return nil
}

func (r *PremiumCacheRepo) Delete(ctx context.Context, uid string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, premiumKey(uid)).Err(); err != nil {
		return fmt.Errorf("delete cached premium state: %w", err)
	}
	return nil
}

func premiumKey(uid string) string {
	return premiumPrefix + strings.TrimSpace(uid)
}
