package apiapp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shamar-morrison/show-seek-sub001/internal/infra/metrics"
	redrepo "github.com/shamar-morrison/show-seek-sub001/internal/repo/redis"
	authsvc "github.com/shamar-morrison/show-seek-sub001/internal/services/auth"
	ratesvc "github.com/shamar-morrison/show-seek-sub001/internal/services/rate"
)

func newTestAuth(t *testing.T) (*authsvc.Service, string) {
	t.Helper()
	jwtManager := authsvc.NewJWTManager("test-secret", time.Minute)
	token, _, err := jwtManager.GenerateAccessToken("user-42")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return authsvc.NewService(jwtManager), token
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	authService, token := newTestAuth(t)
	mw := AuthMiddleware(authService, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/premium", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok || identity.UID != "user-42" || identity.Provider != authsvc.ProviderJWT {
			t.Fatalf("unexpected identity: %+v", identity)
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAuthMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	authService, _ := newTestAuth(t)
	mw := AuthMiddleware(authService, zap.NewNop())

	for name, header := range map[string]string{
		"missing":   "",
		"no scheme": "token-only",
		"invalid":   "Bearer not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/premium", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rr := httptest.NewRecorder()

			mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				t.Fatalf("handler must not be called")
			})).ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestAuthMiddlewareWithoutService(t *testing.T) {
	rr := httptest.NewRecorder()
	AuthMiddleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler must not be called")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/premium", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestRequestLoggerCountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(requestLogger(zap.NewNop()))
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("unexpected request count: %v", got)
	}
}

func TestExtractBearerToken(t *testing.T) {
	if token, ok := extractBearerToken("  bearer abc"); !ok || token != "abc" {
		t.Fatalf("unexpected token: %q %v", token, ok)
	}
	if _, ok := extractBearerToken("Bearer   "); ok {
		t.Fatalf("blank token must be rejected")
	}
}

func TestRateLimitMiddlewareBlocksAfterLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	limiter := ratesvc.NewLimiter(redrepo.NewRateRepo(client), 0, 1)
	handler := RateLimitMiddleware(limiter, "restore", zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/premium/restore", nil)
		return req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UID: "user-1"}))
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newReq())
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first call: unexpected status %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, newReq())
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second call: unexpected status %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	defer func() { _ = client.Close() }()

	limiter := ratesvc.NewLimiter(redrepo.NewRateRepo(client), 1, 1)
	called := false
	handler := RateLimitMiddleware(limiter, "validate", zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/purchases/validate", nil)
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UID: "user-1"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatalf("request must pass when the limiter store is down")
	}
}
