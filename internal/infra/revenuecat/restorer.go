package revenuecat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/rules"
)

type SubscriberFetcher interface {
	GetSubscriber(ctx context.Context, appUserID string) (model.SubscriberSnapshot, error)
}

// Restorer replays a restore for one user. When the device already reported a
// restore failure, that failure is surfaced as is; otherwise the platform is
// asked for the subscriber and its active entitlements are reported.
type Restorer struct {
	fetcher     SubscriberFetcher
	appUserID   string
	deviceError string
	now         func() time.Time
}

func NewRestorer(fetcher SubscriberFetcher, appUserID, deviceError string) *Restorer {
	return &Restorer{
		fetcher:     fetcher,
		appUserID:   strings.TrimSpace(appUserID),
		deviceError: strings.TrimSpace(deviceError),
		now:         time.Now,
	}
}

func (r *Restorer) RestorePurchases(ctx context.Context) (model.CustomerInfo, error) {
	if r.deviceError != "" {
		return model.CustomerInfo{}, errors.New(r.deviceError)
	}
	if r.fetcher == nil {
		return model.CustomerInfo{}, ErrNotConfigured
	}

	sub, err := r.fetcher.GetSubscriber(ctx, r.appUserID)
	if err != nil {
		return model.CustomerInfo{}, err
	}
	return model.CustomerInfo{
		OriginalAppUserID:  sub.OriginalAppUserID,
		ActiveEntitlements: ActiveEntitlements(sub, r.now().UTC()),
	}, nil
}

// ActiveEntitlements keeps entitlements with no expiry or an expiry after now.
func ActiveEntitlements(sub model.SubscriberSnapshot, now time.Time) map[string]model.SubscriberEntitlement {
	out := make(map[string]model.SubscriberEntitlement, len(sub.Entitlements))
	for key, info := range sub.Entitlements {
		if info.ExpiresAt == nil || strings.TrimSpace(*info.ExpiresAt) == "" {
			out[key] = info
			continue
		}
		expires := rules.ParseUpstreamDate(info.ExpiresAt)
		if expires != nil && expires.After(now) {
			out[key] = info
		}
	}
	return out
}
