package enums

import "strings"

type EntitlementType string

const (
	EntitlementTypeLifetime     EntitlementType = "lifetime"
	EntitlementTypeSubscription EntitlementType = "subscription"
	EntitlementTypeNone         EntitlementType = "none"
)

type SubscriptionType string

const (
	SubscriptionTypeMonthly SubscriptionType = "monthly"
	SubscriptionTypeYearly  SubscriptionType = "yearly"
)

type SubscriptionState string

const (
	SubscriptionStateActive  SubscriptionState = "ACTIVE"
	SubscriptionStateExpired SubscriptionState = "EXPIRED"
)

// PeriodType is the subscription platform's period marker (NORMAL, TRIAL, INTRO).
type PeriodType string

const (
	PeriodTypeNormal PeriodType = "NORMAL"
	PeriodTypeTrial  PeriodType = "TRIAL"
	PeriodTypeIntro  PeriodType = "INTRO"
)

func (p PeriodType) IsTrial() bool {
	return strings.EqualFold(strings.TrimSpace(string(p)), string(PeriodTypeTrial))
}

type PurchaseType string

const (
	PurchaseTypeInApp PurchaseType = "in-app"
	PurchaseTypeSubs  PurchaseType = "subs"
)

type PurchaseSource string

const (
	PurchaseSourcePurchase PurchaseSource = "purchase"
	PurchaseSourceRestore  PurchaseSource = "restore"
)

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

func ParsePlatform(raw string) Platform {
	return Platform(strings.ToLower(strings.TrimSpace(raw)))
}

func (p Platform) IsAndroid() bool {
	return ParsePlatform(string(p)) == PlatformAndroid
}
