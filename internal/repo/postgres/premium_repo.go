package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
)

var ErrPremiumNotFound = errors.New("premium status not found")

type PremiumRepo struct {
	pool *pgxpool.Pool
}

func NewPremiumRepo(pool *pgxpool.Pool) *PremiumRepo {
	return &PremiumRepo{pool: pool}
}

func (r *PremiumRepo) Get(ctx context.Context, uid string) (model.ResolvedPremiumState, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return model.ResolvedPremiumState{}, fmt.Errorf("invalid uid")
	}
	if r.pool == nil {
		return model.ResolvedPremiumState{}, ErrPremiumNotFound
	}

	var (
		state             model.ResolvedPremiumState
		entitlementType   string
		subscriptionType  *string
		subscriptionState *string
	)
	err := r.pool.QueryRow(ctx, `
SELECT
	entitlement_type,
	is_premium,
	product_id,
	expires_at,
	purchase_at,
	is_in_trial,
	trial_start,
	trial_end,
	has_used_trial,
	subscription_type,
	subscription_state,
	original_app_user_id
FROM premium_status
WHERE uid = $1
`, uid).Scan(
		&entitlementType,
		&state.IsPremium,
		&state.ProductID,
		&state.ExpiresAt,
		&state.PurchaseAt,
		&state.IsInTrial,
		&state.TrialStart,
		&state.TrialEnd,
		&state.HasUsedTrial,
		&subscriptionType,
		&subscriptionState,
		&state.OriginalAppUserID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ResolvedPremiumState{}, ErrPremiumNotFound
		}
		return model.ResolvedPremiumState{}, fmt.Errorf("get premium status: %w", err)
	}

	state.EntitlementType = enums.EntitlementType(entitlementType)
	if subscriptionType != nil {
		v := enums.SubscriptionType(*subscriptionType)
		state.SubscriptionType = &v
	}
	if subscriptionState != nil {
		v := enums.SubscriptionState(*subscriptionState)
		state.SubscriptionState = &v
	}
	normalizeTimes(&state)
	return state, nil
}

// Upsert stores the resolved state for uid and appends a history row in the
// same transaction. source names the flow that produced the state.
func (r *PremiumRepo) Upsert(ctx context.Context, uid string, state model.ResolvedPremiumState, source string, now time.Time) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return fmt.Errorf("invalid uid")
	}
	if r.pool == nil {
		return nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var subscriptionType, subscriptionState *string
	if state.SubscriptionType != nil {
		v := string(*state.SubscriptionType)
		subscriptionType = &v
	}
	if state.SubscriptionState != nil {
		v := string(*state.SubscriptionState)
		subscriptionState = &v
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `
INSERT INTO premium_status (
	uid,
	entitlement_type,
	is_premium,
	product_id,
	expires_at,
	purchase_at,
	is_in_trial,
	trial_start,
	trial_end,
	has_used_trial,
	subscription_type,
	subscription_state,
	original_app_user_id,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (uid) DO UPDATE SET
	entitlement_type = EXCLUDED.entitlement_type,
	is_premium = EXCLUDED.is_premium,
	product_id = EXCLUDED.product_id,
	expires_at = EXCLUDED.expires_at,
	purchase_at = EXCLUDED.purchase_at,
	is_in_trial = EXCLUDED.is_in_trial,
	trial_start = EXCLUDED.trial_start,
	trial_end = EXCLUDED.trial_end,
	has_used_trial = premium_status.has_used_trial OR EXCLUDED.has_used_trial,
	subscription_type = EXCLUDED.subscription_type,
	subscription_state = EXCLUDED.subscription_state,
	original_app_user_id = COALESCE(EXCLUDED.original_app_user_id, premium_status.original_app_user_id),
	updated_at = EXCLUDED.updated_at
`,
			uid,
			string(state.EntitlementType),
			state.IsPremium,
			state.ProductID,
			state.ExpiresAt,
			state.PurchaseAt,
			state.IsInTrial,
			state.TrialStart,
			state.TrialEnd,
			state.HasUsedTrial,
			subscriptionType,
			subscriptionState,
			state.OriginalAppUserID,
			now.UTC(),
		); err != nil {
			return fmt.Errorf("upsert premium status: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
INSERT INTO premium_status_history (uid, entitlement_type, is_premium, product_id, expires_at, source, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, uid, string(state.EntitlementType), state.IsPremium, state.ProductID, state.ExpiresAt, source, now.UTC()); err != nil {
			return fmt.Errorf("insert premium status history: %w", err)
		}
		return nil
	})
}

// ListUIDs pages stored users in uid order, starting after the given uid.
func (r *PremiumRepo) ListUIDs(ctx context.Context, after string, limit int) ([]string, error) {
	if r.pool == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	rows, err := r.pool.Query(ctx, `
SELECT uid
FROM premium_status
WHERE uid > $1
ORDER BY uid
LIMIT $2
`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list premium uids: %w", err)
	}
	defer rows.Close()

	uids := make([]string, 0, limit)
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan premium uid: %w", err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate premium uids: %w", err)
	}
	return uids, nil
}

// PruneHistoryOlderThan deletes audit rows written before cutoff.
func (r *PremiumRepo) PruneHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM premium_status_history
WHERE created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune premium status history: %w", err)
	}
	return tag.RowsAffected(), nil
}

func normalizeTimes(state *model.ResolvedPremiumState) {
	for _, ts := range []**time.Time{&state.ExpiresAt, &state.PurchaseAt, &state.TrialStart, &state.TrialEnd} {
		if *ts != nil {
			utc := (*ts).UTC()
			*ts = &utc
		}
	}
}
