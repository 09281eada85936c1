package validationclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/callable"
)

func TestValidatePurchaseResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer id-token" {
			t.Errorf("missing bearer token")
		}
		var body struct {
			Data model.ValidationRequest `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Data.PurchaseToken != "abc.123" || body.Data.Source != enums.PurchaseSourceRestore {
			t.Errorf("unexpected request: %+v", body.Data)
		}
		_, _ = w.Write([]byte(`{"result":{"success":true,"isPremium":true,"entitlementType":"lifetime"}}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "id-token", srv.Client()).ValidatePurchase(context.Background(), model.ValidationRequest{
		ProductID:     "premium_unlock",
		PurchaseToken: "abc.123",
		PurchaseType:  enums.PurchaseTypeInApp,
		Source:        enums.PurchaseSourceRestore,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !resp.GrantsLifetime() {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestValidatePurchaseStructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"status":"FAILED_PRECONDITION","message":"pending","details":{"reason":"LIFETIME_PURCHASE_PENDING"}}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", srv.Client()).ValidatePurchase(context.Background(), model.ValidationRequest{})
	if !callable.IsLifetimePending(err) {
		t.Fatalf("expected lifetime pending error, got %v", err)
	}
}

func TestValidatePurchaseBareStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", srv.Client()).ValidatePurchase(context.Background(), model.ValidationRequest{})
	var ce *callable.Error
	if !errors.As(err, &ce) || ce.Code != callable.CodeUnavailable {
		t.Fatalf("expected unavailable callable error, got %v", err)
	}
}

func TestValidatePurchaseNotConfigured(t *testing.T) {
	_, err := New("", "", nil).ValidatePurchase(context.Background(), model.ValidationRequest{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
