package model

// SubscriberSnapshot is the subscription platform's view of one user. Dates are
// kept as the upstream strings; parsing happens during resolution.
type SubscriberSnapshot struct {
	Entitlements      map[string]SubscriberEntitlement     `json:"entitlements"`
	Subscriptions     map[string]SubscriberSubscription    `json:"subscriptions"`
	NonSubscriptions  map[string][]NonSubscriptionPurchase `json:"non_subscriptions"`
	OriginalAppUserID string                               `json:"original_app_user_id"`
}

type SubscriberEntitlement struct {
	ProductID  string  `json:"product_identifier"`
	PurchaseAt *string `json:"purchase_date"`
	ExpiresAt  *string `json:"expires_date"`
	PeriodType string  `json:"period_type"`
}

type SubscriberSubscription struct {
	PurchaseAt *string `json:"purchase_date"`
	ExpiresAt  *string `json:"expires_date"`
	PeriodType string  `json:"period_type"`
}

type NonSubscriptionPurchase struct {
	ID         string  `json:"id,omitempty"`
	PurchaseAt *string `json:"purchase_date"`
}

// CustomerInfo is what a platform restore returns: the entitlements that are
// currently active for the user.
type CustomerInfo struct {
	OriginalAppUserID  string
	ActiveEntitlements map[string]SubscriberEntitlement
}

func (c CustomerInfo) HasActive(entitlementID string) bool {
	for key := range c.ActiveEntitlements {
		if equalFoldTrim(key, entitlementID) {
			return true
		}
	}
	return false
}
