package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/pkg/callable"
	authsvc "github.com/shamar-morrison/show-seek-sub001/internal/services/auth"
	"github.com/shamar-morrison/show-seek-sub001/internal/transport/http/dto"
	httperrors "github.com/shamar-morrison/show-seek-sub001/internal/transport/http/errors"
)

type PurchaseValidator interface {
	Validate(ctx context.Context, uid string, req model.ValidationRequest) (model.ValidationResponse, error)
}

// ValidationHandler serves purchase validation over the callable protocol:
// {"data": request} in, {"result": response} or {"error": ...} out.
type ValidationHandler struct {
	validator PurchaseValidator
}

func NewValidationHandler(validator PurchaseValidator) *ValidationHandler {
	return &ValidationHandler{validator: validator}
}

func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		httperrors.WriteCallable(w, callable.New(callable.CodeUnauthenticated, "", "Sign in to validate purchases."))
		return
	}
	if h.validator == nil {
		httperrors.WriteCallable(w, callable.New(callable.CodeInternal, "", "Purchase validation is unavailable."))
		return
	}

	var req dto.ValidateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteCallable(w, callable.New(callable.CodeInvalidArgument, "", "Request body must be a JSON object with a data member."))
		return
	}

	resp, err := h.validator.Validate(r.Context(), identity.UID, req.Data)
	if err != nil {
		httperrors.WriteCallable(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ValidateCallResponse{Result: resp})
}
