package dto

import "github.com/shamar-morrison/show-seek-sub001/internal/domain/model"

// ValidateCallRequest is the callable request envelope for purchase validation.
type ValidateCallRequest struct {
	Data model.ValidationRequest `json:"data"`
}

type ValidateCallResponse struct {
	Result model.ValidationResponse `json:"result"`
}

type PremiumStatusResponse struct {
	UID     string                     `json:"uid"`
	Premium model.ResolvedPremiumState `json:"premium"`
}

type RestoreRequest struct {
	Platform     string                 `json:"platform"`
	AppUserID    string                 `json:"app_user_id,omitempty"`
	RestoreError string                 `json:"restore_error,omitempty"`
	Purchases    []model.PurchaseRecord `json:"purchases"`
}

type RestoreResponse struct {
	Restored bool `json:"restored"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
