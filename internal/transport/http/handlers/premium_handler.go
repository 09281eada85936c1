package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/rules"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/billing"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/revenuecat"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/callable"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/validate"
	authsvc "github.com/shamar-morrison/show-seek-sub001/internal/services/auth"
	restoresvc "github.com/shamar-morrison/show-seek-sub001/internal/services/restore"
	"github.com/shamar-morrison/show-seek-sub001/internal/transport/http/dto"
	httperrors "github.com/shamar-morrison/show-seek-sub001/internal/transport/http/errors"
)

type PremiumStatusReader interface {
	Status(ctx context.Context, uid string) (model.ResolvedPremiumState, error)
}

// RestoreDependencies are the long-lived collaborators a restore request is
// assembled from. ValidatorFor binds server-side validation to the caller.
type RestoreDependencies struct {
	ValidatorFor func(uid string) restoresvc.Validator
	Subscribers  revenuecat.SubscriberFetcher
	Connection   *billing.Connection
	Catalog      rules.Catalog
	Logger       *zap.Logger
	Outcomes     restoresvc.OutcomeRecorder
}

type PremiumHandler struct {
	status  PremiumStatusReader
	restore RestoreDependencies
	logger  *zap.Logger
}

func NewPremiumHandler(status PremiumStatusReader, restore RestoreDependencies) *PremiumHandler {
	logger := restore.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PremiumHandler{
		status:  status,
		restore: restore,
		logger:  logger,
	}
}

func (h *PremiumHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.status == nil {
		writeInternal(w, "PREMIUM_SERVICE_UNAVAILABLE", "premium service is unavailable")
		return
	}

	state, err := h.status.Status(r.Context(), identity.UID)
	if err != nil {
		writeServiceError(w, err, "failed to load premium status")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PremiumStatusResponse{
		UID:     identity.UID,
		Premium: state,
	})
}

func (h *PremiumHandler) Restore(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.restore.ValidatorFor == nil || h.restore.Subscribers == nil {
		writeInternal(w, "RESTORE_SERVICE_UNAVAILABLE", "restore service is unavailable")
		return
	}

	var req dto.RestoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.Platform) {
		writeBadRequest(w, "VALIDATION_ERROR", "platform is required")
		return
	}

	// Restores only ever look at the caller's own platform account.
	if appUserID := strings.TrimSpace(req.AppUserID); appUserID != "" && appUserID != identity.UID {
		writeForbidden(w, "APP_USER_MISMATCH", "app_user_id does not belong to the caller")
		return
	}

	service := restoresvc.NewService(restoresvc.Dependencies{
		Validator: h.restore.ValidatorFor(identity.UID),
		Catalog:   h.restore.Catalog,
		Logger:    h.logger.With(zap.String("uid", identity.UID)),
		Outcomes:  h.restore.Outcomes,
	})
	restored, err := service.RestoreLegacyAware(r.Context(), restoresvc.Request{
		Platform: enums.ParsePlatform(req.Platform),
		Customer: revenuecat.NewRestorer(h.restore.Subscribers, identity.UID, req.RestoreError),
		Billing:  billing.NewSession(h.restore.Connection, req.Purchases),
	})
	if err != nil {
		var pending *restoresvc.Error
		switch {
		case errors.As(err, &pending):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    pending.Code,
				Message: pending.Message,
			})
		default:
			h.logger.Warn("restore failed", zap.String("uid", identity.UID), zap.Error(err))
			writeServiceError(w, err, "failed to restore purchases")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.RestoreResponse{Restored: restored})
}

// writeServiceError passes structured validation errors through and hides
// everything else behind a generic message.
func writeServiceError(w http.ResponseWriter, err error, message string) {
	var ce *callable.Error
	if errors.As(err, &ce) {
		httperrors.WriteCallable(w, ce)
		return
	}
	writeInternal(w, "INTERNAL_ERROR", message)
}
