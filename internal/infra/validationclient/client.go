// Package validationclient calls a remote purchase validation endpoint that
// speaks the callable-function protocol.
package validationclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/callable"
)

var ErrNotConfigured = errors.New("validation endpoint is not configured")

type Client struct {
	url   string
	token string
	http  *http.Client
}

func New(url, bearerToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(bearerToken),
		http:  httpClient,
	}
}

type callRequest struct {
	Data model.ValidationRequest `json:"data"`
}

type callResponse struct {
	Result *model.ValidationResponse `json:"result"`
	Error  *callable.WireError       `json:"error"`
}

// ValidatePurchase returns the endpoint's result, or a *callable.Error carrying
// the structured rejection the endpoint reported.
func (c *Client) ValidatePurchase(ctx context.Context, req model.ValidationRequest) (model.ValidationResponse, error) {
	if c == nil || c.url == "" {
		return model.ValidationResponse{}, ErrNotConfigured
	}

	payload, err := json.Marshal(callRequest{Data: req})
	if err != nil {
		return model.ValidationResponse{}, fmt.Errorf("encode validation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return model.ValidationResponse{}, fmt.Errorf("build validation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return model.ValidationResponse{}, fmt.Errorf("call validation endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.ValidationResponse{}, fmt.Errorf("read validation response: %w", err)
	}

	var decoded callResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		if resp.StatusCode >= 300 {
			return model.ValidationResponse{}, statusError(resp.StatusCode)
		}
		return model.ValidationResponse{}, fmt.Errorf("decode validation response: %w", err)
	}
	if decoded.Error != nil {
		return model.ValidationResponse{}, callable.FromWire(*decoded.Error)
	}
	if resp.StatusCode >= 300 {
		return model.ValidationResponse{}, statusError(resp.StatusCode)
	}
	if decoded.Result == nil {
		return model.ValidationResponse{}, callable.New(callable.CodeInternal, "", "validation response has no result")
	}
	return *decoded.Result, nil
}

func statusError(status int) *callable.Error {
	code := callable.CodeInternal
	switch {
	case status == http.StatusUnauthorized:
		code = callable.CodeUnauthenticated
	case status == http.StatusForbidden:
		code = callable.CodePermissionDenied
	case status == http.StatusTooManyRequests:
		code = callable.CodeResourceExhausted
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		code = callable.CodeUnavailable
	}
	return callable.New(code, "", fmt.Sprintf("validation endpoint returned http %d", status))
}
