package restore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/rules"
)

func TestExtractLegacyCandidate(t *testing.T) {
	catalog := rules.DefaultCatalog()
	tests := []struct {
		name      string
		message   string
		wantOK    bool
		wantID    string
		wantToken string
	}{
		{
			name:      "embedded transaction",
			message:   "StoreTransaction(orderId=GPA.1, productIds=[premium_unlock], purchaseTime=1, purchaseToken=abc.123)",
			wantOK:    true,
			wantID:    "premium_unlock",
			wantToken: "abc.123",
		},
		{
			name:      "quoted ids with a non legacy entry first",
			message:   `productIds=["coins", "premium_lifetime"] type=INAPP purchaseToken=tok-9)`,
			wantOK:    true,
			wantID:    "premium_lifetime",
			wantToken: "tok-9",
		},
		{
			name:      "spans lines",
			message:   "productIds=[premium_unlock]\npurchaseState=PENDING\npurchaseToken=multi)",
			wantOK:    true,
			wantID:    "premium_unlock",
			wantToken: "multi",
		},
		{
			name:      "legacy description after a tokenless one",
			message:   "StoreTransaction(productIds=[premium_monthly], orderId=GPA.1) StoreTransaction(productIds=[premium_unlock], purchaseToken=tok.2)",
			wantOK:    true,
			wantID:    "premium_unlock",
			wantToken: "tok.2",
		},
		{
			name:    "ids and token from different descriptions",
			message: "Purchase(productIds=[premium_unlock], state=FAILED) Other(purchaseToken=stray)",
		},
		{
			name:    "subscription only",
			message: "productIds=[premium_monthly], purchaseToken=sub)",
		},
		{
			name:    "empty token",
			message: "productIds=[premium_unlock], purchaseToken=)",
		},
		{
			name:    "no transaction",
			message: "There was a problem with the store.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractLegacyCandidate(tc.message, catalog)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if got.ProductID != tc.wantID || got.PurchaseToken != tc.wantToken {
				t.Fatalf("unexpected candidate: %+v", got)
			}
		})
	}
}

func TestLooksPending(t *testing.T) {
	if LooksPending(nil) {
		t.Fatalf("nil error is not pending")
	}
	if !LooksPending(errors.New("Payment is PENDING")) {
		t.Fatalf("case-insensitive match expected")
	}
	if !LooksPending(fmt.Errorf("restore: %w", errors.New("PurchasesError(code=PaymentPendingError)"))) {
		t.Fatalf("wrapped pending error expected to match")
	}
	if LooksPending(errors.New("network error")) {
		t.Fatalf("unrelated error must not match")
	}
}
