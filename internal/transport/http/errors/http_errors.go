package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/callable"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

// CallableError is the error body of the callable protocol.
type CallableError struct {
	Error callable.WireError `json:"error"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteCallable writes err as a callable error envelope. Errors that are not
// *callable.Error are reported as INTERNAL without their message.
func WriteCallable(w http.ResponseWriter, err error) {
	var ce *callable.Error
	if !errors.As(err, &ce) {
		ce = callable.New(callable.CodeInternal, "", "internal error")
	}
	Write(w, ce.HTTPStatus(), CallableError{Error: ce.Wire()})
}
