package rules

import (
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
)

// PreferStoredLifetime keeps a previously granted lifetime entitlement when a
// fresh snapshot no longer shows it, e.g. before the platform has ingested a
// server-validated legacy purchase. Trial usage is never forgotten.
func PreferStoredLifetime(stored, resolved model.ResolvedPremiumState) model.ResolvedPremiumState {
	if stored.EntitlementType == enums.EntitlementTypeLifetime && resolved.EntitlementType != enums.EntitlementTypeLifetime {
		out := stored
		out.HasUsedTrial = stored.HasUsedTrial || resolved.HasUsedTrial
		if resolved.OriginalAppUserID != nil {
			out.OriginalAppUserID = resolved.OriginalAppUserID
		}
		return out
	}
	resolved.HasUsedTrial = resolved.HasUsedTrial || stored.HasUsedTrial
	return resolved
}
