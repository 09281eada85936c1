package validation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/rules"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/googleplay"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/callable"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/errclass"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/validate"
	pgrepo "github.com/shamar-morrison/show-seek-sub001/internal/repo/postgres"
)

const (
	upstreamGooglePlay = "google_play"
	upstreamRevenueCat = "revenuecat"
)

type PlayVerifier interface {
	GetProduct(ctx context.Context, productID, token string) (googleplay.ProductPurchase, error)
	GetSubscription(ctx context.Context, subscriptionID, token string) (googleplay.SubscriptionPurchase, error)
	AcknowledgeProduct(ctx context.Context, productID, token string) error
	AcknowledgeSubscription(ctx context.Context, subscriptionID, token string) error
}

type SubscriberFetcher interface {
	GetSubscriber(ctx context.Context, appUserID string) (model.SubscriberSnapshot, error)
}

type PremiumStore interface {
	Get(ctx context.Context, uid string) (model.ResolvedPremiumState, error)
	Upsert(ctx context.Context, uid string, state model.ResolvedPremiumState, source string, now time.Time) error
}

type TokenLedger interface {
	Claim(ctx context.Context, claim pgrepo.PurchaseTokenClaim) (string, error)
	MarkAcknowledged(ctx context.Context, purchaseToken string) error
}

type PremiumCache interface {
	Get(ctx context.Context, uid string) (model.ResolvedPremiumState, bool, error)
	Set(ctx context.Context, uid string, state model.ResolvedPremiumState) error
}

type Recorder interface {
	ObserveValidation(purchaseType, result string)
	ObserveUpstream(upstream string, started time.Time, err error)
}

type Dependencies struct {
	Play        PlayVerifier
	Subscribers SubscriberFetcher
	Premium     PremiumStore
	Tokens      TokenLedger
	Cache       PremiumCache
	Catalog     rules.Catalog
	Logger      *zap.Logger
	Recorder    Recorder
}

type Service struct {
	play        PlayVerifier
	subscribers SubscriberFetcher
	premium     PremiumStore
	tokens      TokenLedger
	cache       PremiumCache
	catalog     rules.Catalog
	resolver    rules.Resolver
	logger      *zap.Logger
	recorder    Recorder
	now         func() time.Time
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
		play:        deps.Play,
		subscribers: deps.Subscribers,
		premium:     deps.Premium,
		tokens:      deps.Tokens,
		cache:       deps.Cache,
		catalog:     catalog,
		resolver:    rules.NewResolver(catalog),
		logger:      logger,
		recorder:    deps.Recorder,
		now:         time.Now,
	}
}

// verifiedPurchase is what Google Play confirmed about a token.
type verifiedPurchase struct {
	orderID      string
	acknowledged bool
	purchaseAt   *time.Time
	expiresAt    *time.Time
	inTrial      bool
}

// Validate verifies a purchase token for uid, binds the token to uid, and
// returns the user's premium state after the purchase is taken into account.
// Rejections are *callable.Error values.
func (s *Service) Validate(ctx context.Context, uid string, req model.ValidationRequest) (model.ValidationResponse, error) {
	resp, err := s.validate(ctx, uid, req)
	s.observe(req.PurchaseType, err)
	return resp, err
}

func (s *Service) validate(ctx context.Context, uid string, req model.ValidationRequest) (model.ValidationResponse, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return model.ValidationResponse{}, callable.New(callable.CodeUnauthenticated, "", "Sign in to validate purchases.")
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.PurchaseToken = strings.TrimSpace(req.PurchaseToken)
	if !validate.Required(req.ProductID, req.PurchaseToken) {
		return model.ValidationResponse{}, callable.New(callable.CodeInvalidArgument, "", "productId and purchaseToken are required.")
	}
	if req.Source == "" {
		req.Source = enums.PurchaseSourcePurchase
	}

	var (
		verified verifiedPurchase
		err      error
	)
	switch req.PurchaseType {
	case enums.PurchaseTypeInApp:
		if !s.catalog.IsLegacyLifetime(req.ProductID) {
			return model.ValidationResponse{}, callable.New(callable.CodeInvalidArgument, callable.ReasonUnsupportedProduct, "This product cannot be validated as a one-time purchase.")
		}
		verified, err = s.verifyProduct(ctx, req)
	case enums.PurchaseTypeSubs:
		if _, ok := s.catalog.PlanPeriod(req.ProductID); !ok {
			return model.ValidationResponse{}, callable.New(callable.CodeInvalidArgument, callable.ReasonUnsupportedProduct, "This product is not a known subscription.")
		}
		verified, err = s.verifySubscription(ctx, req)
	default:
		return model.ValidationResponse{}, callable.New(callable.CodeInvalidArgument, "", "purchaseType must be in-app or subs.")
	}
	if err != nil {
		return model.ValidationResponse{}, err
	}

	if err := s.claimToken(ctx, uid, req, verified); err != nil {
		return model.ValidationResponse{}, err
	}

	if !verified.acknowledged {
		s.acknowledge(ctx, req)
	}

	snapshot, err := s.fetchSubscriber(ctx, uid)
	if err != nil {
		return model.ValidationResponse{}, err
	}
	mergeVerified(&snapshot, req, verified)

	state, err := s.resolveAndStore(ctx, uid, snapshot, string(req.Source))
	if err != nil {
		return model.ValidationResponse{}, err
	}

	return model.ValidationResponse{
		Success:         true,
		IsPremium:       state.IsPremium,
		EntitlementType: state.EntitlementType,
	}, nil
}

// Status returns the cached premium state for uid, refreshing it from the
// subscription platform on a miss.
func (s *Service) Status(ctx context.Context, uid string) (model.ResolvedPremiumState, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return model.ResolvedPremiumState{}, callable.New(callable.CodeUnauthenticated, "", "Sign in to read premium status.")
	}

	if s.cache != nil {
		state, ok, err := s.cache.Get(ctx, uid)
		if err != nil {
			s.logger.Warn("read premium cache", zap.String("uid", uid), zap.Error(err))
		} else if ok {
			return state, nil
		}
	}

	if s.subscribers == nil {
		return s.storedOrNone(ctx, uid)
	}

	started := time.Now()
	snapshot, err := s.subscribers.GetSubscriber(ctx, uid)
	s.observeUpstream(upstreamRevenueCat, started, err)
	if err != nil {
		s.logger.Warn("fetch subscriber for status", zap.String("uid", uid), zap.Error(err))
		if stored, storedErr := s.storedState(ctx, uid); storedErr == nil {
			return stored, nil
		}
		return model.ResolvedPremiumState{}, upstreamFailure(err, "The subscription service is unavailable.")
	}

	return s.resolveAndStore(ctx, uid, snapshot, "status")
}

// ForUser binds the service to uid so it can serve as a restore validator.
func (s *Service) ForUser(uid string) *UserValidator {
	return &UserValidator{service: s, uid: uid}
}

type UserValidator struct {
	service *Service
	uid     string
}

func (v *UserValidator) ValidatePurchase(ctx context.Context, req model.ValidationRequest) (model.ValidationResponse, error) {
	return v.service.Validate(ctx, v.uid, req)
}

func (s *Service) verifyProduct(ctx context.Context, req model.ValidationRequest) (verifiedPurchase, error) {
	if s.play == nil {
		return verifiedPurchase{}, callable.New(callable.CodeInternal, "", "Purchase verification is not configured.")
	}

	started := time.Now()
	purchase, err := s.play.GetProduct(ctx, req.ProductID, req.PurchaseToken)
	s.observeUpstream(upstreamGooglePlay, started, err)
	if err != nil {
		return verifiedPurchase{}, s.playFailure(err, req)
	}

	switch purchase.State {
	case googleplay.ProductPending:
		return verifiedPurchase{}, callable.New(callable.CodeFailedPrecondition, callable.ReasonLifetimePurchasePending, "The payment for this purchase is still pending.")
	case googleplay.ProductPurchased:
	default:
		return verifiedPurchase{}, callable.New(callable.CodeFailedPrecondition, callable.ReasonPurchaseNotActive, "This purchase is no longer active.")
	}

	return verifiedPurchase{
		orderID:      purchase.OrderID,
		acknowledged: purchase.Acknowledged,
		purchaseAt:   purchase.PurchaseTime,
	}, nil
}

func (s *Service) verifySubscription(ctx context.Context, req model.ValidationRequest) (verifiedPurchase, error) {
	if s.play == nil {
		return verifiedPurchase{}, callable.New(callable.CodeInternal, "", "Purchase verification is not configured.")
	}

	started := time.Now()
	purchase, err := s.play.GetSubscription(ctx, req.ProductID, req.PurchaseToken)
	s.observeUpstream(upstreamGooglePlay, started, err)
	if err != nil {
		return verifiedPurchase{}, s.playFailure(err, req)
	}

	if purchase.Pending() {
		return verifiedPurchase{}, callable.New(callable.CodeFailedPrecondition, callable.ReasonSubscriptionPurchasePending, "The payment for this subscription is still pending.")
	}
	if !purchase.ActiveAt(s.now()) {
		return verifiedPurchase{}, callable.New(callable.CodeFailedPrecondition, callable.ReasonPurchaseNotActive, "This subscription is no longer active.")
	}

	return verifiedPurchase{
		orderID:      purchase.OrderID,
		acknowledged: purchase.Acknowledged,
		purchaseAt:   purchase.StartTime,
		expiresAt:    purchase.ExpiryTime,
		inTrial:      purchase.InFreeTrial(),
	}, nil
}

func (s *Service) playFailure(err error, req model.ValidationRequest) error {
	s.logger.Warn("google play verification failed",
		zap.String("product_id", req.ProductID),
		zap.String("purchase_type", string(req.PurchaseType)),
		zap.Error(err),
	)
	switch status := errclass.StatusCode(err); {
	case errclass.IsTransient(err, 0):
		return callable.New(callable.CodeUnavailable, "", "Google Play is temporarily unavailable. Try again later.")
	case status == http.StatusNotFound, status == http.StatusBadRequest, status == http.StatusGone:
		return callable.New(callable.CodeInvalidArgument, "", "The purchase token was not recognized.")
	default:
		return callable.New(callable.CodeInternal, "", "Could not verify the purchase.")
	}
}

func (s *Service) claimToken(ctx context.Context, uid string, req model.ValidationRequest, verified verifiedPurchase) error {
	if s.tokens == nil {
		return nil
	}
	owner, err := s.tokens.Claim(ctx, pgrepo.PurchaseTokenClaim{
		PurchaseToken: req.PurchaseToken,
		UID:           uid,
		ProductID:     req.ProductID,
		PurchaseType:  string(req.PurchaseType),
		OrderID:       verified.orderID,
	})
	if err != nil {
		s.logger.Error("claim purchase token", zap.String("uid", uid), zap.Error(err))
		return callable.New(callable.CodeInternal, "", "Could not record the purchase.")
	}
	if owner != uid {
		s.logger.Warn("purchase token owned by another user",
			zap.String("uid", uid),
			zap.String("product_id", req.ProductID),
		)
		return callable.New(callable.CodePermissionDenied, callable.ReasonTokenOwnedByAnotherUser, "This purchase belongs to another account.")
	}
	return nil
}

func (s *Service) acknowledge(ctx context.Context, req model.ValidationRequest) {
	var err error
	if req.PurchaseType == enums.PurchaseTypeSubs {
		err = s.play.AcknowledgeSubscription(ctx, req.ProductID, req.PurchaseToken)
	} else {
		err = s.play.AcknowledgeProduct(ctx, req.ProductID, req.PurchaseToken)
	}
	if err != nil {
		s.logger.Warn("acknowledge purchase", zap.String("product_id", req.ProductID), zap.Error(err))
		return
	}
	if s.tokens != nil {
		if err := s.tokens.MarkAcknowledged(ctx, req.PurchaseToken); err != nil {
			s.logger.Warn("mark purchase acknowledged", zap.Error(err))
		}
	}
}

func (s *Service) fetchSubscriber(ctx context.Context, uid string) (model.SubscriberSnapshot, error) {
	if s.subscribers == nil {
		return model.SubscriberSnapshot{}, nil
	}
	started := time.Now()
	snapshot, err := s.subscribers.GetSubscriber(ctx, uid)
	s.observeUpstream(upstreamRevenueCat, started, err)
	if err == nil {
		return snapshot, nil
	}
	if errclass.IsTransient(err, 0) {
		s.logger.Warn("fetch subscriber", zap.String("uid", uid), zap.Error(err))
		return model.SubscriberSnapshot{}, callable.New(callable.CodeUnavailable, "", "The subscription service is temporarily unavailable.")
	}
	s.logger.Warn("fetch subscriber, continuing with verified purchase only", zap.String("uid", uid), zap.Error(err))
	return model.SubscriberSnapshot{}, nil
}

func (s *Service) resolveAndStore(ctx context.Context, uid string, snapshot model.SubscriberSnapshot, source string) (model.ResolvedPremiumState, error) {
	now := s.now().UTC()
	state := s.resolver.Resolve(snapshot, now.UnixMilli())

	stored, storedErr := s.storedState(ctx, uid)
	if storedErr == nil {
		state = rules.PreferStoredLifetime(stored, state)
	}

	if s.premium != nil && (storedErr != nil || !stored.Equivalent(state)) {
		if err := s.premium.Upsert(ctx, uid, state, source, now); err != nil {
			s.logger.Error("store premium state", zap.String("uid", uid), zap.Error(err))
			return model.ResolvedPremiumState{}, callable.New(callable.CodeInternal, "", "Could not store premium status.")
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, uid, state); err != nil {
			s.logger.Warn("cache premium state", zap.String("uid", uid), zap.Error(err))
		}
	}

	s.logger.Info("premium state resolved",
		zap.String("uid", uid),
		zap.String("source", source),
		zap.String("entitlement_type", string(state.EntitlementType)),
		zap.Bool("is_premium", state.IsPremium),
	)
	return state, nil
}

func (s *Service) storedState(ctx context.Context, uid string) (model.ResolvedPremiumState, error) {
	if s.premium == nil {
		return model.ResolvedPremiumState{}, pgrepo.ErrPremiumNotFound
	}
	return s.premium.Get(ctx, uid)
}

func (s *Service) storedOrNone(ctx context.Context, uid string) (model.ResolvedPremiumState, error) {
	stored, err := s.storedState(ctx, uid)
	if err == nil {
		return stored, nil
	}
	if errors.Is(err, pgrepo.ErrPremiumNotFound) {
		return s.resolver.Resolve(model.SubscriberSnapshot{}, s.now().UnixMilli()), nil
	}
	return model.ResolvedPremiumState{}, callable.New(callable.CodeInternal, "", "Could not read premium status.")
}

// mergeVerified folds a purchase Google Play just confirmed into the snapshot
// so the result does not wait for the platform to ingest it.
func mergeVerified(snapshot *model.SubscriberSnapshot, req model.ValidationRequest, verified verifiedPurchase) {
	switch req.PurchaseType {
	case enums.PurchaseTypeInApp:
		if snapshot.NonSubscriptions == nil {
			snapshot.NonSubscriptions = map[string][]model.NonSubscriptionPurchase{}
		}
		snapshot.NonSubscriptions[req.ProductID] = append(snapshot.NonSubscriptions[req.ProductID], model.NonSubscriptionPurchase{
			ID:         verified.orderID,
			PurchaseAt: formatTime(verified.purchaseAt),
		})
	case enums.PurchaseTypeSubs:
		if snapshot.Subscriptions == nil {
			snapshot.Subscriptions = map[string]model.SubscriberSubscription{}
		}
		existing, ok := snapshot.Subscriptions[req.ProductID]
		if ok {
			current := rules.ParseUpstreamDate(existing.ExpiresAt)
			if current != nil && verified.expiresAt != nil && !verified.expiresAt.After(*current) {
				return
			}
		}
		periodType := enums.PeriodTypeNormal
		if verified.inTrial {
			periodType = enums.PeriodTypeTrial
		}
		snapshot.Subscriptions[req.ProductID] = model.SubscriberSubscription{
			PurchaseAt: formatTime(verified.purchaseAt),
			ExpiresAt:  formatTime(verified.expiresAt),
			PeriodType: string(periodType),
		}
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(time.RFC3339Nano)
	return &v
}

func upstreamFailure(err error, message string) error {
	if errclass.IsTransient(err, 0) {
		return callable.New(callable.CodeUnavailable, "", message)
	}
	return callable.New(callable.CodeInternal, "", message)
}

func (s *Service) observe(purchaseType enums.PurchaseType, err error) {
	if s.recorder == nil {
		return
	}
	result := "ok"
	var ce *callable.Error
	if errors.As(err, &ce) {
		result = ce.Details.Reason
		if result == "" {
			result = ce.Status()
		}
	} else if err != nil {
		result = "error"
	}
	s.recorder.ObserveValidation(string(purchaseType), strings.ToLower(result))
}

func (s *Service) observeUpstream(upstream string, started time.Time, err error) {
	if s.recorder != nil {
		s.recorder.ObserveUpstream(upstream, started, err)
	}
}
