package restore

import "errors"

const CodeLegacyRestorePending = "LEGACY_RESTORE_PENDING"

var (
	ErrLegacyRestorePending = &Error{
		Code:    CodeLegacyRestorePending,
		Message: "legacy purchase payment is still pending",
	}
	ErrNotConfigured = errors.New("restore dependencies are not configured")
)

// Error is a structured restore failure. Two errors are equal under errors.Is
// when their codes match.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newPendingError() *Error {
	return &Error{
		Code:    ErrLegacyRestorePending.Code,
		Message: ErrLegacyRestorePending.Message,
	}
}
