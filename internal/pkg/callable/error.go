// Package callable models the structured errors of the purchase validation
// endpoint, which speaks the Firebase callable-function protocol.
package callable

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const codePrefix = "functions/"

const (
	CodeInvalidArgument    = codePrefix + "invalid-argument"
	CodeFailedPrecondition = codePrefix + "failed-precondition"
	CodePermissionDenied   = codePrefix + "permission-denied"
	CodeUnauthenticated    = codePrefix + "unauthenticated"
	CodeNotFound           = codePrefix + "not-found"
	CodeResourceExhausted  = codePrefix + "resource-exhausted"
	CodeUnavailable        = codePrefix + "unavailable"
	CodeInternal           = codePrefix + "internal"
)

const (
	ReasonLifetimePurchasePending     = "LIFETIME_PURCHASE_PENDING"
	ReasonSubscriptionPurchasePending = "SUBSCRIPTION_PURCHASE_PENDING"
	ReasonPurchaseNotActive           = "PURCHASE_NOT_ACTIVE"
	ReasonUnsupportedProduct          = "UNSUPPORTED_PRODUCT"
	ReasonTokenOwnedByAnotherUser     = "TOKEN_OWNED_BY_ANOTHER_USER"
)

type Details struct {
	Reason string `json:"reason,omitempty"`
}

type Error struct {
	Code    string
	Message string
	Details Details
}

// WireError is the "error" member of a callable response body.
type WireError struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Details *Details `json:"details,omitempty"`
}

func New(code, reason, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: Details{Reason: reason},
	}
}

func (e *Error) Error() string {
	if e.Details.Reason != "" {
		return fmt.Sprintf("%s: %s (reason=%s)", e.Code, e.Message, e.Details.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status is the canonical upper-case status, e.g. FAILED_PRECONDITION.
func (e *Error) Status() string {
	return codeToStatus(e.Code)
}

func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidArgument, CodeFailedPrecondition:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) Wire() WireError {
	wire := WireError{
		Status:  e.Status(),
		Message: e.Message,
	}
	if e.Details.Reason != "" {
		details := e.Details
		wire.Details = &details
	}
	return wire
}

func FromWire(wire WireError) *Error {
	out := &Error{
		Code:    statusToCode(wire.Status),
		Message: wire.Message,
	}
	if wire.Details != nil {
		out.Details = *wire.Details
	}
	return out
}

// HasReason reports whether err is a callable error with the given code and
// structured reason.
func HasReason(err error, code, reason string) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == code && ce.Details.Reason == reason
}

// IsLifetimePending matches the one structured rejection a legacy restore
// treats as non-terminal.
func IsLifetimePending(err error) bool {
	return HasReason(err, CodeFailedPrecondition, ReasonLifetimePurchasePending)
}

func codeToStatus(code string) string {
	status := strings.TrimPrefix(strings.TrimSpace(code), codePrefix)
	if status == "" {
		return "INTERNAL"
	}
	return strings.ToUpper(strings.ReplaceAll(status, "-", "_"))
}

func statusToCode(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return CodeInternal
	}
	return codePrefix + strings.ToLower(strings.ReplaceAll(status, "_", "-"))
}
