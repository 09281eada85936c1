// Package rate throttles premium API calls per user with fixed windows.
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	minuteWindow = time.Minute
	tenSecWindow = 10 * time.Second
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

type Limiter struct {
	store     WindowStore
	perMinute int
	per10Sec  int
}

func NewLimiter(store WindowStore, perMinute, per10Sec int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	if per10Sec < 0 {
		per10Sec = 0
	}

	return &Limiter{
		store:     store,
		perMinute: perMinute,
		per10Sec:  per10Sec,
	}
}

// Allow counts one call of action by uid. When a window is exhausted it
// returns the seconds until the longest blocking window resets.
func (l *Limiter) Allow(ctx context.Context, action, uid string) (int64, bool, error) {
	if strings.TrimSpace(uid) == "" || strings.TrimSpace(action) == "" {
		return 0, false, fmt.Errorf("invalid rate limit subject")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, w := range l.windows() {
		count, ttl, err := l.store.IncrementWindow(ctx, windowKey(action, w.name, uid), w.size)
		if err != nil {
			return 0, false, err
		}
		if count > int64(w.limit) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}
	return 0, true, nil
}

// RetryAfter reports how long uid must wait before action is allowed again
// without counting a call.
func (l *Limiter) RetryAfter(ctx context.Context, action, uid string) (int64, error) {
	if strings.TrimSpace(uid) == "" || strings.TrimSpace(action) == "" {
		return 0, fmt.Errorf("invalid rate limit subject")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)
	for _, w := range l.windows() {
		count, ttl, err := l.store.WindowState(ctx, windowKey(action, w.name, uid))
		if err != nil {
			return 0, err
		}
		if count >= int64(w.limit) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}
	return retryAfterSec, nil
}

type window struct {
	name  string
	size  time.Duration
	limit int
}

func (l *Limiter) windows() []window {
	out := make([]window, 0, 2)
	if l.perMinute > 0 {
		out = append(out, window{name: "min", size: minuteWindow, limit: l.perMinute})
	}
	if l.per10Sec > 0 {
		out = append(out, window{name: "10s", size: tenSecWindow, limit: l.per10Sec})
	}
	return out
}

func windowKey(action, window, uid string) string {
	return "rate:" + action + ":" + window + ":" + uid
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
