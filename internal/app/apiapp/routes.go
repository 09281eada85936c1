package apiapp

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	authsvc "github.com/shamar-morrison/show-seek-sub001/internal/services/auth"
	ratesvc "github.com/shamar-morrison/show-seek-sub001/internal/services/rate"
	validationsvc "github.com/shamar-morrison/show-seek-sub001/internal/services/validation"
	"github.com/shamar-morrison/show-seek-sub001/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService       *authsvc.Service
	ValidationService *validationsvc.Service
	Restore           handlers.RestoreDependencies
	RateLimiter       *ratesvc.Limiter
	Logger            *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	var (
		validator handlers.PurchaseValidator
		status    handlers.PremiumStatusReader
	)
	if deps.ValidationService != nil {
		validator = deps.ValidationService
		status = deps.ValidationService
	}
	if deps.Restore.Logger == nil {
		deps.Restore.Logger = deps.Logger
	}

	healthHandler := handlers.NewHealthHandler()
	validationHandler := handlers.NewValidationHandler(validator)
	premiumHandler := handlers.NewPremiumHandler(status, deps.Restore)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)
		r.With(RateLimitMiddleware(deps.RateLimiter, "validate", deps.Logger)).Post("/purchases/validate", validationHandler.Validate)
		r.Get("/premium", premiumHandler.Status)
		r.With(RateLimitMiddleware(deps.RateLimiter, "restore", deps.Logger)).Post("/premium/restore", premiumHandler.Restore)
	})
}
