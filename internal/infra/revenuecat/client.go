// Package revenuecat talks to the subscription platform's REST API.
package revenuecat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
)

const DefaultBaseURL = "https://api.revenuecat.com"

var ErrNotConfigured = errors.New("revenuecat client is not configured")

// APIError is a non-2xx answer from the platform.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("revenuecat: http %d", e.Status)
	}
	return fmt.Sprintf("revenuecat: http %d: %s", e.Status, e.Message)
}

func (e *APIError) HTTPStatus() int {
	return e.Status
}

type Config struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    httpClient,
	}
}

type subscriberEnvelope struct {
	Subscriber model.SubscriberSnapshot `json:"subscriber"`
}

// GetSubscriber fetches the platform's current view of appUserID.
func (c *Client) GetSubscriber(ctx context.Context, appUserID string) (model.SubscriberSnapshot, error) {
	if c == nil || c.apiKey == "" {
		return model.SubscriberSnapshot{}, ErrNotConfigured
	}
	appUserID = strings.TrimSpace(appUserID)
	if appUserID == "" {
		return model.SubscriberSnapshot{}, fmt.Errorf("app user id is required")
	}

	endpoint := c.baseURL + "/v1/subscribers/" + url.PathEscape(appUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.SubscriberSnapshot{}, fmt.Errorf("build subscriber request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.SubscriberSnapshot{}, fmt.Errorf("get subscriber: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return model.SubscriberSnapshot{}, fmt.Errorf("read subscriber response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		apiErr.Status = resp.StatusCode
		return model.SubscriberSnapshot{}, apiErr
	}

	var envelope subscriberEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return model.SubscriberSnapshot{}, fmt.Errorf("decode subscriber response: %w", err)
	}
	return envelope.Subscriber, nil
}
