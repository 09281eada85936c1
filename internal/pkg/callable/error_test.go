package callable

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWireRoundTripKeepsCodeAndReason(t *testing.T) {
	src := New(CodeFailedPrecondition, ReasonLifetimePurchasePending, "payment is pending")

	wire := src.Wire()
	if wire.Status != "FAILED_PRECONDITION" {
		t.Fatalf("unexpected wire status: %s", wire.Status)
	}
	if wire.Details == nil || wire.Details.Reason != ReasonLifetimePurchasePending {
		t.Fatalf("reason must be carried in details")
	}

	back := FromWire(wire)
	if back.Code != CodeFailedPrecondition {
		t.Fatalf("unexpected code: %s", back.Code)
	}
	if !IsLifetimePending(back) {
		t.Fatalf("round-tripped error must still be lifetime pending")
	}
}

func TestIsLifetimePendingRequiresBothCodeAndReason(t *testing.T) {
	if IsLifetimePending(New(CodeInvalidArgument, ReasonLifetimePurchasePending, "x")) {
		t.Fatalf("wrong code must not match")
	}
	if IsLifetimePending(New(CodeFailedPrecondition, ReasonPurchaseNotActive, "x")) {
		t.Fatalf("wrong reason must not match")
	}
	if IsLifetimePending(errors.New("LIFETIME_PURCHASE_PENDING")) {
		t.Fatalf("plain errors must not match")
	}

	wrapped := fmt.Errorf("validate: %w", New(CodeFailedPrecondition, ReasonLifetimePurchasePending, "x"))
	if !IsLifetimePending(wrapped) {
		t.Fatalf("wrapped callable error must match")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[string]int{
		CodeInvalidArgument:  http.StatusBadRequest,
		CodePermissionDenied: http.StatusForbidden,
		CodeUnavailable:      http.StatusServiceUnavailable,
		"functions/unknown":  http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := New(code, "", "").HTTPStatus(); got != want {
			t.Fatalf("%s: got %d want %d", code, got, want)
		}
	}
	if FromWire(WireError{}).Code != CodeInternal {
		t.Fatalf("empty status must map to internal")
	}
}
