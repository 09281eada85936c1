// Package googleplay verifies and acknowledges purchases with the Google Play
// Developer API.
package googleplay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	androidpublisher "google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var ErrNotConfigured = errors.New("google play client is not configured")

type ProductState int64

const (
	ProductPurchased ProductState = 0
	ProductCanceled  ProductState = 1
	ProductPending   ProductState = 2
)

const (
	paymentPending   int64 = 0
	paymentFreeTrial int64 = 2
	paymentDeferred  int64 = 3
)

type Config struct {
	PackageName        string
	ServiceAccountFile string
}

type ProductPurchase struct {
	ProductID     string
	PurchaseToken string
	OrderID       string
	State         ProductState
	Acknowledged  bool
	PurchaseTime  *time.Time
}

type SubscriptionPurchase struct {
	ProductID     string
	PurchaseToken string
	OrderID       string
	PaymentState  *int64
	AutoRenewing  bool
	Acknowledged  bool
	StartTime     *time.Time
	ExpiryTime    *time.Time
}

// Pending reports a subscription whose payment has not been received yet,
// including deferred upgrades.
func (s SubscriptionPurchase) Pending() bool {
	return s.PaymentState != nil && (*s.PaymentState == paymentPending || *s.PaymentState == paymentDeferred)
}

func (s SubscriptionPurchase) InFreeTrial() bool {
	return s.PaymentState != nil && *s.PaymentState == paymentFreeTrial
}

func (s SubscriptionPurchase) ActiveAt(now time.Time) bool {
	return s.ExpiryTime != nil && s.ExpiryTime.After(now)
}

// UpstreamError carries the HTTP status of a failed Play API call.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("google %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) HTTPStatus() int {
	return e.Status
}

type Client struct {
	packageName string
	svc         *androidpublisher.Service
}

// NewClient authenticates with the service account key file named in cfg.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	path := strings.TrimSpace(cfg.ServiceAccountFile)
	if path == "" {
		return nil, fmt.Errorf("google play service account file is empty")
	}
	credentials, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read google play service account: %w", err)
	}
	return NewClientWithOptions(ctx, cfg.PackageName,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(androidpublisher.AndroidpublisherScope),
	)
}

func NewClientWithOptions(ctx context.Context, packageName string, opts ...option.ClientOption) (*Client, error) {
	packageName = strings.TrimSpace(packageName)
	if packageName == "" {
		return nil, fmt.Errorf("google play package name is empty")
	}
	svc, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("androidpublisher.NewService: %w", err)
	}
	return &Client{packageName: packageName, svc: svc}, nil
}

func (c *Client) GetProduct(ctx context.Context, productID, token string) (ProductPurchase, error) {
	if c == nil || c.svc == nil {
		return ProductPurchase{}, ErrNotConfigured
	}
	resp, err := c.svc.Purchases.Products.Get(c.packageName, productID, token).Context(ctx).Do()
	if err != nil {
		return ProductPurchase{}, wrap("products.get", err)
	}
	return ProductPurchase{
		ProductID:     productID,
		PurchaseToken: token,
		OrderID:       resp.OrderId,
		State:         ProductState(resp.PurchaseState),
		Acknowledged:  resp.AcknowledgementState == 1,
		PurchaseTime:  millisToTime(resp.PurchaseTimeMillis),
	}, nil
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID, token string) (SubscriptionPurchase, error) {
	if c == nil || c.svc == nil {
		return SubscriptionPurchase{}, ErrNotConfigured
	}
	resp, err := c.svc.Purchases.Subscriptions.Get(c.packageName, subscriptionID, token).Context(ctx).Do()
	if err != nil {
		return SubscriptionPurchase{}, wrap("subscriptions.get", err)
	}
	return SubscriptionPurchase{
		ProductID:     subscriptionID,
		PurchaseToken: token,
		OrderID:       resp.OrderId,
		PaymentState:  resp.PaymentState,
		AutoRenewing:  resp.AutoRenewing,
		Acknowledged:  resp.AcknowledgementState == 1,
		StartTime:     millisToTime(resp.StartTimeMillis),
		ExpiryTime:    millisToTime(resp.ExpiryTimeMillis),
	}, nil
}

func (c *Client) AcknowledgeProduct(ctx context.Context, productID, token string) error {
	if c == nil || c.svc == nil {
		return ErrNotConfigured
	}
	req := &androidpublisher.ProductPurchasesAcknowledgeRequest{}
	if err := c.svc.Purchases.Products.Acknowledge(c.packageName, productID, token, req).Context(ctx).Do(); err != nil {
		return wrap("products.acknowledge", err)
	}
	return nil
}

func (c *Client) AcknowledgeSubscription(ctx context.Context, subscriptionID, token string) error {
	if c == nil || c.svc == nil {
		return ErrNotConfigured
	}
	req := &androidpublisher.SubscriptionPurchasesAcknowledgeRequest{}
	if err := c.svc.Purchases.Subscriptions.Acknowledge(c.packageName, subscriptionID, token, req).Context(ctx).Do(); err != nil {
		return wrap("subscriptions.acknowledge", err)
	}
	return nil
}

func wrap(op string, err error) error {
	out := &UpstreamError{Op: op, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		out.Status = gerr.Code
	}
	return out
}

func millisToTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
