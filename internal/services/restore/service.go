package restore

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/rules"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/callable"
)

const (
	OutcomeSkippedPlatform  = "skipped_platform"
	OutcomeRestoredPlatform = "restored_platform"
	OutcomeRestoredLegacy   = "restored_legacy"
	OutcomeNotFound         = "not_found"
	OutcomePending          = "pending"
	OutcomeFailed           = "failed"
)

type CustomerRestorer interface {
	RestorePurchases(ctx context.Context) (model.CustomerInfo, error)
}

type BillingClient interface {
	InitConnection(ctx context.Context) error
	EndConnection(ctx context.Context) error
	GetAvailablePurchases(ctx context.Context) ([]model.PurchaseRecord, error)
}

type Validator interface {
	ValidatePurchase(ctx context.Context, req model.ValidationRequest) (model.ValidationResponse, error)
}

type OutcomeRecorder interface {
	ObserveRestore(outcome string)
}

type Dependencies struct {
	Validator Validator
	Catalog   rules.Catalog
	Logger    *zap.Logger
	Outcomes  OutcomeRecorder
}

type Service struct {
	validator Validator
	catalog   rules.Catalog
	logger    *zap.Logger
	outcomes  OutcomeRecorder
}

// Request carries the per-invocation collaborators: the caller's platform,
// its subscription-platform session and its device billing session.
type Request struct {
	Platform enums.Platform
	Customer CustomerRestorer
	Billing  BillingClient
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog := deps.Catalog
	if len(catalog.LegacyLifetimeProductIDs) == 0 {
		catalog = rules.DefaultCatalog()
	}
	return &Service{
		validator: deps.Validator,
		catalog:   catalog,
		logger:    logger,
		outcomes:  deps.Outcomes,
	}
}

// RestoreLegacyAware restores premium for an Android user, falling back to
// server-side validation of legacy lifetime purchases when the platform restore
// does not report an active entitlement. It returns ErrLegacyRestorePending when
// a pending payment was seen and no candidate succeeded; any other validation
// rejection is returned unmodified.
func (s *Service) RestoreLegacyAware(ctx context.Context, req Request) (bool, error) {
	if !req.Platform.IsAndroid() {
		s.observe(OutcomeSkippedPlatform)
		return false, nil
	}
	if s.validator == nil || req.Customer == nil || req.Billing == nil {
		return false, ErrNotConfigured
	}

	if err := req.Billing.InitConnection(ctx); err != nil {
		s.observe(OutcomeFailed)
		return false, err
	}
	defer func() {
		if endErr := req.Billing.EndConnection(ctx); endErr != nil {
			s.logger.Warn("end billing connection", zap.Error(endErr))
		}
	}()

	info, restoreErr := req.Customer.RestorePurchases(ctx)
	if restoreErr == nil && info.HasActive(s.catalog.EntitlementKey()) {
		s.observe(OutcomeRestoredPlatform)
		return true, nil
	}

	pending := false
	if restoreErr != nil {
		pending = LooksPending(restoreErr)
		s.logger.Info("platform restore failed, trying legacy purchases",
			zap.Error(restoreErr),
			zap.Bool("pending", pending),
		)
	}

	candidates := s.gatherCandidates(ctx, req.Billing, restoreErr)
	for _, candidate := range candidates {
		resp, err := s.validator.ValidatePurchase(ctx, model.ValidationRequest{
			ProductID:     candidate.ProductID,
			PurchaseToken: candidate.PurchaseToken,
			PurchaseType:  enums.PurchaseTypeInApp,
			Source:        enums.PurchaseSourceRestore,
		})
		if err != nil {
			if callable.IsLifetimePending(err) {
				s.logger.Info("legacy purchase still pending", zap.String("product_id", candidate.ProductID))
				pending = true
				continue
			}
			s.observe(OutcomeFailed)
			return false, err
		}
		if resp.GrantsLifetime() {
			s.observe(OutcomeRestoredLegacy)
			return true, nil
		}
	}

	if pending {
		s.observe(OutcomePending)
		return false, newPendingError()
	}

	s.observe(OutcomeNotFound)
	return false, nil
}

func (s *Service) gatherCandidates(ctx context.Context, billing BillingClient, restoreErr error) []model.LegacyCandidate {
	history, err := billing.GetAvailablePurchases(ctx)
	if err != nil {
		s.logger.Warn("read device purchase history", zap.Error(err))
		history = nil
	}

	candidates := LegacyCandidatesFromHistory(history, s.catalog)
	if len(candidates) > 0 || restoreErr == nil {
		return candidates
	}

	if candidate, ok := ExtractLegacyCandidate(restoreErr.Error(), s.catalog); ok {
		s.logger.Info("recovered legacy purchase from restore error", zap.String("product_id", candidate.ProductID))
		return []model.LegacyCandidate{candidate}
	}
	return nil
}

// LegacyCandidatesFromHistory keeps legacy lifetime purchases ordered most recent
// first; equal transaction dates put the later-seen record first.
func LegacyCandidatesFromHistory(history []model.PurchaseRecord, catalog rules.Catalog) []model.LegacyCandidate {
	matched := make([]model.PurchaseRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		record := history[i]
		if strings.TrimSpace(record.PurchaseToken) == "" || !catalog.IsLegacyLifetime(record.ProductID) {
			continue
		}
		matched = append(matched, record)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].TransactionDate > matched[j].TransactionDate
	})

	seen := make(map[string]struct{}, len(matched))
	out := make([]model.LegacyCandidate, 0, len(matched))
	for _, record := range matched {
		if _, dup := seen[record.PurchaseToken]; dup {
			continue
		}
		seen[record.PurchaseToken] = struct{}{}
		out = append(out, model.LegacyCandidate{
			ProductID:     record.ProductID,
			PurchaseToken: record.PurchaseToken,
		})
	}
	return out
}

func (s *Service) observe(outcome string) {
	if s.outcomes != nil {
		s.outcomes.ObserveRestore(outcome)
	}
}
