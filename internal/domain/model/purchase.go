package model

import "github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"

// PurchaseRecord is one entry of the device's billing purchase history.
type PurchaseRecord struct {
	ProductID       string `json:"productId"`
	PurchaseToken   string `json:"purchaseToken"`
	TransactionDate int64  `json:"transactionDate"`
	TransactionID   string `json:"transactionId,omitempty"`
	PurchaseState   string `json:"purchaseState,omitempty"`
}

type LegacyCandidate struct {
	ProductID     string `json:"productId"`
	PurchaseToken string `json:"purchaseToken"`
}

type ValidationRequest struct {
	ProductID     string               `json:"productId"`
	PurchaseToken string               `json:"purchaseToken"`
	PurchaseType  enums.PurchaseType   `json:"purchaseType"`
	Source        enums.PurchaseSource `json:"source"`
}

type ValidationResponse struct {
	Success         bool                  `json:"success"`
	IsPremium       bool                  `json:"isPremium"`
	EntitlementType enums.EntitlementType `json:"entitlementType"`
}

// GrantsLifetime is the only response shape a legacy restore accepts.
func (r ValidationResponse) GrantsLifetime() bool {
	return r.Success && r.IsPremium && r.EntitlementType == enums.EntitlementTypeLifetime
}
