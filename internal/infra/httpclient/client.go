package httpclient

import (
	"net/http"
	"time"
)

const defaultUserAgent = "premium-service/1.0"

// New returns a client with a bounded timeout whose requests carry userAgent
// unless the caller already set one.
func New(timeout time.Duration, userAgent string) *http.Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			base:      http.DefaultTransport,
			userAgent: userAgent,
		},
	}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
