package restore

import (
	"regexp"
	"strings"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/rules"
)

var embeddedTransactionRe = regexp.MustCompile(`productIds=\[([^\]]*)\][^)]*?purchaseToken=([^)]*)\)`)

// ExtractLegacyCandidate recovers a legacy lifetime purchase from an SDK error
// message that embeds a transaction description such as
// "... productIds=[premium_unlock], ..., purchaseToken=abc.123) ...". Ids and
// token must come from the same parenthesized description.
func ExtractLegacyCandidate(message string, catalog rules.Catalog) (model.LegacyCandidate, bool) {
	for _, match := range embeddedTransactionRe.FindAllStringSubmatch(message, -1) {
		token := strings.TrimSpace(match[2])
		if token == "" {
			continue
		}
		for _, rawID := range strings.Split(match[1], ",") {
			productID := strings.Trim(strings.TrimSpace(rawID), `"'`)
			if catalog.IsLegacyLifetime(productID) {
				return model.LegacyCandidate{
					ProductID:     productID,
					PurchaseToken: token,
				}, true
			}
		}
	}
	return model.LegacyCandidate{}, false
}
