package model

import (
	"strings"
	"time"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
)

// ResolvedPremiumState is the canonical answer to "does this user have premium".
type ResolvedPremiumState struct {
	EntitlementType   enums.EntitlementType    `json:"entitlementType"`
	IsPremium         bool                     `json:"isPremium"`
	ProductID         *string                  `json:"productId"`
	ExpiresAt         *time.Time               `json:"expiresAt"`
	PurchaseAt        *time.Time               `json:"purchaseAt"`
	IsInTrial         bool                     `json:"isInTrial"`
	TrialStart        *time.Time               `json:"trialStart"`
	TrialEnd          *time.Time               `json:"trialEnd"`
	HasUsedTrial      bool                     `json:"hasUsedTrial"`
	SubscriptionType  *enums.SubscriptionType  `json:"subscriptionType"`
	SubscriptionState *enums.SubscriptionState `json:"subscriptionState"`
	OriginalAppUserID *string                  `json:"originalAppUserId"`
}

// Equivalent reports whether two states match field for field. Timestamps
// compare by instant.
func (s ResolvedPremiumState) Equivalent(other ResolvedPremiumState) bool {
	return s.EntitlementType == other.EntitlementType &&
		s.IsPremium == other.IsPremium &&
		equalPtr(s.ProductID, other.ProductID) &&
		equalTimePtr(s.ExpiresAt, other.ExpiresAt) &&
		equalTimePtr(s.PurchaseAt, other.PurchaseAt) &&
		s.IsInTrial == other.IsInTrial &&
		equalTimePtr(s.TrialStart, other.TrialStart) &&
		equalTimePtr(s.TrialEnd, other.TrialEnd) &&
		s.HasUsedTrial == other.HasUsedTrial &&
		equalPtr(s.SubscriptionType, other.SubscriptionType) &&
		equalPtr(s.SubscriptionState, other.SubscriptionState) &&
		equalPtr(s.OriginalAppUserID, other.OriginalAppUserID)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
