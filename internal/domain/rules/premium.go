package rules

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
)

var upstreamDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) Resolver {
	return Resolver{catalog: catalog}
}

// Resolve resolves a snapshot against the default catalog.
func Resolve(sub model.SubscriberSnapshot, nowMs int64) model.ResolvedPremiumState {
	return NewResolver(DefaultCatalog()).Resolve(sub, nowMs)
}

type entitlementMatch struct {
	info       model.SubscriberEntitlement
	expiresAt  *time.Time
	purchaseAt *time.Time
	active     bool
}

type subscriptionMatch struct {
	productID  string
	info       model.SubscriberSubscription
	expiresAt  *time.Time
	purchaseAt *time.Time
}

type lifetimeMatch struct {
	productID  string
	purchaseAt *time.Time
}

// Resolve merges the entitlement, subscription and non-subscription views of a
// subscriber into one state. Precedence is lifetime, then subscription, then none.
func (r Resolver) Resolve(sub model.SubscriberSnapshot, nowMs int64) model.ResolvedPremiumState {
	entitlement := r.findEntitlement(sub, nowMs)
	activeSub, latestSub := findSubscriptions(sub, nowMs)
	lifetime := r.findLifetimePurchase(sub)
	usedTrial := trialHistory(sub)

	state := model.ResolvedPremiumState{
		OriginalAppUserID: optionalString(sub.OriginalAppUserID),
	}

	entitlementActive := entitlement != nil && entitlement.active

	switch {
	case (entitlementActive && r.catalog.IsLegacyLifetime(entitlement.info.ProductID)) || lifetime != nil:
		state.EntitlementType = enums.EntitlementTypeLifetime
		state.IsPremium = true
		if entitlementActive && r.catalog.IsLegacyLifetime(entitlement.info.ProductID) {
			state.ProductID = optionalString(entitlement.info.ProductID)
		} else {
			state.ProductID = optionalString(lifetime.productID)
		}
		if entitlement != nil && entitlement.purchaseAt != nil {
			state.PurchaseAt = entitlement.purchaseAt
		} else if lifetime != nil {
			state.PurchaseAt = lifetime.purchaseAt
		}
		state.HasUsedTrial = usedTrial

	case entitlementActive || activeSub != nil:
		var (
			productID  string
			periodType string
		)
		if entitlementActive {
			productID = entitlement.info.ProductID
			periodType = entitlement.info.PeriodType
			state.ExpiresAt = entitlement.expiresAt
			state.PurchaseAt = entitlement.purchaseAt
		} else {
			productID = activeSub.productID
			periodType = activeSub.info.PeriodType
			state.ExpiresAt = activeSub.expiresAt
			state.PurchaseAt = activeSub.purchaseAt
		}

		state.EntitlementType = enums.EntitlementTypeSubscription
		state.IsPremium = true
		state.ProductID = optionalString(productID)
		state.SubscriptionState = subscriptionState(enums.SubscriptionStateActive)
		state.IsInTrial = enums.PeriodType(periodType).IsTrial()
		if state.IsInTrial {
			state.TrialStart = state.PurchaseAt
			state.TrialEnd = state.ExpiresAt
		}
		state.HasUsedTrial = state.IsInTrial || usedTrial
		state.SubscriptionType = r.subscriptionType(productID)

	default:
		state.EntitlementType = enums.EntitlementTypeNone
		state.IsPremium = false
		state.SubscriptionState = subscriptionState(enums.SubscriptionStateExpired)
		state.HasUsedTrial = usedTrial
		switch {
		case entitlement != nil:
			state.ProductID = optionalString(entitlement.info.ProductID)
			state.ExpiresAt = entitlement.expiresAt
			state.PurchaseAt = entitlement.purchaseAt
		case latestSub != nil:
			state.ProductID = optionalString(latestSub.productID)
			state.ExpiresAt = latestSub.expiresAt
			state.PurchaseAt = latestSub.purchaseAt
		}
		if state.ProductID != nil {
			state.SubscriptionType = r.subscriptionType(*state.ProductID)
		}
	}

	return state
}

func (r Resolver) findEntitlement(sub model.SubscriberSnapshot, nowMs int64) *entitlementMatch {
	wanted := r.catalog.EntitlementKey()
	for _, key := range sortedKeys(sub.Entitlements) {
		if !strings.EqualFold(strings.TrimSpace(key), wanted) {
			continue
		}
		info := sub.Entitlements[key]
		match := &entitlementMatch{
			info:       info,
			expiresAt:  ParseUpstreamDate(info.ExpiresAt),
			purchaseAt: ParseUpstreamDate(info.PurchaseAt),
		}
		// An unparsable expiry resolves to nil and reads the same as an absent one.
		match.active = match.expiresAt == nil || match.expiresAt.UnixMilli() > nowMs
		return match
	}
	return nil
}

// findSubscriptions returns the active subscription with the greatest expiry and,
// for best-effort reporting, the subscription with the greatest parseable expiry
// regardless of whether it is still active.
func findSubscriptions(sub model.SubscriberSnapshot, nowMs int64) (*subscriptionMatch, *subscriptionMatch) {
	var active, latest *subscriptionMatch
	for _, productID := range sortedKeys(sub.Subscriptions) {
		info := sub.Subscriptions[productID]
		candidate := &subscriptionMatch{
			productID:  productID,
			info:       info,
			expiresAt:  ParseUpstreamDate(info.ExpiresAt),
			purchaseAt: ParseUpstreamDate(info.PurchaseAt),
		}
		if latest == nil || millisOrMin(candidate.expiresAt) >= millisOrMin(latest.expiresAt) {
			latest = candidate
		}
		if candidate.expiresAt == nil || candidate.expiresAt.UnixMilli() <= nowMs {
			continue
		}
		if active == nil || candidate.expiresAt.UnixMilli() >= active.expiresAt.UnixMilli() {
			active = candidate
		}
	}
	return active, latest
}

func (r Resolver) findLifetimePurchase(sub model.SubscriberSnapshot) *lifetimeMatch {
	var best *lifetimeMatch
	for _, productID := range sortedKeys(sub.NonSubscriptions) {
		if !r.catalog.IsLegacyLifetime(productID) {
			continue
		}
		for _, purchase := range sub.NonSubscriptions[productID] {
			candidate := &lifetimeMatch{
				productID:  productID,
				purchaseAt: ParseUpstreamDate(purchase.PurchaseAt),
			}
			if best == nil || millisOrMin(candidate.purchaseAt) >= millisOrMin(best.purchaseAt) {
				best = candidate
			}
		}
	}
	return best
}

func (r Resolver) subscriptionType(productID string) *enums.SubscriptionType {
	period, ok := r.catalog.PlanPeriod(productID)
	if !ok {
		return nil
	}
	return &period
}

// trialHistory approximates past trial usage from whatever subscription history
// the platform still reports.
func trialHistory(sub model.SubscriberSnapshot) bool {
	for _, info := range sub.Subscriptions {
		if enums.PeriodType(info.PeriodType).IsTrial() {
			return true
		}
	}
	return false
}

// ParseUpstreamDate parses the platform's date strings. Anything unparsable is nil.
func ParseUpstreamDate(raw *string) *time.Time {
	if isBlank(raw) {
		return nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range upstreamDateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

func isBlank(raw *string) bool {
	return raw == nil || strings.TrimSpace(*raw) == ""
}

func millisOrMin(t *time.Time) int64 {
	if t == nil {
		return math.MinInt64
	}
	return t.UnixMilli()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func subscriptionState(state enums.SubscriptionState) *enums.SubscriptionState {
	return &state
}
