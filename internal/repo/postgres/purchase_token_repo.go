package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PurchaseTokenRepo struct {
	pool *pgxpool.Pool
}

type PurchaseTokenClaim struct {
	PurchaseToken string
	UID           string
	ProductID     string
	PurchaseType  string
	OrderID       string
}

func NewPurchaseTokenRepo(pool *pgxpool.Pool) *PurchaseTokenRepo {
	return &PurchaseTokenRepo{pool: pool}
}

// Claim binds a purchase token to a user on first sight and returns the uid
// that owns it. A token already owned by someone else keeps its owner.
func (r *PurchaseTokenRepo) Claim(ctx context.Context, claim PurchaseTokenClaim) (string, error) {
	claim.PurchaseToken = strings.TrimSpace(claim.PurchaseToken)
	claim.UID = strings.TrimSpace(claim.UID)
	if claim.PurchaseToken == "" || claim.UID == "" {
		return "", fmt.Errorf("invalid purchase token claim")
	}
	if r.pool == nil {
		return claim.UID, nil
	}

	var orderID *string
	if v := strings.TrimSpace(claim.OrderID); v != "" {
		orderID = &v
	}

	var owner string
	err := r.pool.QueryRow(ctx, `
INSERT INTO purchase_tokens (purchase_token, uid, product_id, purchase_type, order_id, created_at, last_seen_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (purchase_token) DO UPDATE
SET last_seen_at = NOW(),
	order_id = COALESCE(purchase_tokens.order_id, EXCLUDED.order_id)
RETURNING uid
`, claim.PurchaseToken, claim.UID, claim.ProductID, claim.PurchaseType, orderID).Scan(&owner)
	if err != nil {
		return "", fmt.Errorf("claim purchase token: %w", err)
	}
	return owner, nil
}

func (r *PurchaseTokenRepo) MarkAcknowledged(ctx context.Context, purchaseToken string) error {
	if r.pool == nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `
UPDATE purchase_tokens
SET acknowledged = TRUE
WHERE purchase_token = $1
`, strings.TrimSpace(purchaseToken)); err != nil {
		return fmt.Errorf("mark purchase token acknowledged: %w", err)
	}
	return nil
}
