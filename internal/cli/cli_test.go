package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/callable"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("REVENUECAT_API_KEY", "")
	t.Setenv("VALIDATION_CLIENT_URL", "")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeJSON(t *testing.T, name string, value any) string {
	t.Helper()
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestResolveFromSnapshotFile(t *testing.T) {
	purchased := "2024-01-02T03:04:05Z"
	path := writeJSON(t, "subscriber.json", model.SubscriberSnapshot{
		NonSubscriptions: map[string][]model.NonSubscriptionPurchase{
			"premium_unlock": {{ID: "p1", PurchaseAt: &purchased}},
		},
	})

	out, err := runCLI(t, "resolve", "--snapshot", path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var state model.ResolvedPremiumState
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if !state.IsPremium || state.EntitlementType != enums.EntitlementTypeLifetime {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestResolveRequiresInput(t *testing.T) {
	if _, err := runCLI(t, "resolve"); err == nil {
		t.Fatalf("expected error without --user or --snapshot")
	}
	if _, err := runCLI(t, "resolve", "--user", "u1"); err == nil {
		t.Fatalf("expected error without a subscription platform key")
	}
}

func TestRestoreAgainstValidationEndpoint(t *testing.T) {
	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer op-token" {
			t.Errorf("missing bearer token")
		}
		var body struct {
			Data model.ValidationRequest `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		tokens = append(tokens, body.Data.PurchaseToken)

		w.Header().Set("Content-Type", "application/json")
		if body.Data.PurchaseToken == "newer" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": callable.New(callable.CodeFailedPrecondition, callable.ReasonLifetimePurchasePending, "pending").Wire(),
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": model.ValidationResponse{Success: true, IsPremium: true, EntitlementType: enums.EntitlementTypeLifetime},
		})
	}))
	defer srv.Close()

	history := writeJSON(t, "history.json", []model.PurchaseRecord{
		{ProductID: "premium_unlock", PurchaseToken: "older", TransactionDate: 100},
		{ProductID: "premium_unlock", PurchaseToken: "newer", TransactionDate: 200},
	})

	out, err := runCLI(t, "restore",
		"--history", history,
		"--restore-error", "The receipt is missing",
		"--validation-url", srv.URL,
		"--token", "op-token",
	)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	var result restoreOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if !result.Restored {
		t.Fatalf("expected restored, got %+v", result)
	}
	if len(tokens) != 2 || tokens[0] != "newer" || tokens[1] != "older" {
		t.Fatalf("unexpected validation order: %v", tokens)
	}
}

func TestRestoreReportsPending(t *testing.T) {
	out, err := runCLI(t, "restore",
		"--restore-error", "PaymentPendingError: purchase is pending",
		"--validation-url", "http://127.0.0.1:1/unused",
	)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	var result restoreOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if result.Restored || result.Code != "LEGACY_RESTORE_PENDING" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRestoreRequiresEndpoint(t *testing.T) {
	if _, err := runCLI(t, "restore"); err == nil {
		t.Fatalf("expected error without a validation endpoint")
	}
}
