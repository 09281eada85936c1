package restore

import "strings"

// LooksPending reports whether a restore failure describes a purchase whose
// payment has not cleared yet. It matches both the plain SDK message and the
// embedded PurchasesError(code=PaymentPendingError, ...) description.
func LooksPending(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "pending")
}
