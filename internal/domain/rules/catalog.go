package rules

import (
	"strings"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
)

const DefaultEntitlementID = "premium"

// Catalog is the static product configuration the resolver depends on.
type Catalog struct {
	EntitlementID            string
	LegacyLifetimeProductIDs []string
	PlanPeriods              map[string]enums.SubscriptionType
}

func DefaultCatalog() Catalog {
	return Catalog{
		EntitlementID: DefaultEntitlementID,
		LegacyLifetimeProductIDs: []string{
			"premium_unlock",
			"premium_lifetime",
		},
		PlanPeriods: map[string]enums.SubscriptionType{
			"premium_monthly":      enums.SubscriptionTypeMonthly,
			"premium_yearly":       enums.SubscriptionTypeYearly,
			"premium_subscription": enums.SubscriptionTypeMonthly,
		},
	}
}

// EntitlementKey is the entitlement identifier that grants premium.
func (c Catalog) EntitlementKey() string {
	if strings.TrimSpace(c.EntitlementID) == "" {
		return DefaultEntitlementID
	}
	return c.EntitlementID
}

func (c Catalog) IsLegacyLifetime(productID string) bool {
	productID = normalizeID(productID)
	if productID == "" {
		return false
	}
	for _, id := range c.LegacyLifetimeProductIDs {
		if normalizeID(id) == productID {
			return true
		}
	}
	return false
}

// PlanPeriod maps a subscription product id to its billing period. Google Play
// ids of the form "<subscription>:<base plan>" fall back to the subscription part.
func (c Catalog) PlanPeriod(productID string) (enums.SubscriptionType, bool) {
	productID = normalizeID(productID)
	if productID == "" {
		return "", false
	}
	for id, period := range c.PlanPeriods {
		if normalizeID(id) == productID {
			return period, true
		}
	}
	if base, _, ok := strings.Cut(productID, ":"); ok {
		return c.PlanPeriod(base)
	}
	return "", false
}

func normalizeID(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
