package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/enums"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
auth:
  mode: firebase
  firebase_project_id: show-seek
premium:
  legacy_lifetime_product_ids: [premium_unlock, premium_forever]
  plan_periods:
    premium_weekly_test: monthly
repair:
  interval: 30m
  batch_size: 50
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Auth.Mode != AuthModeFirebase || cfg.Auth.FirebaseProjectID != "show-seek" {
		t.Fatalf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Repair.Interval != 30*time.Minute || cfg.Repair.BatchSize != 50 {
		t.Fatalf("unexpected repair config: %+v", cfg.Repair)
	}
	if cfg.Repair.MaxAttempts != 4 {
		t.Fatalf("repair.max_attempts default should stay 4")
	}

	catalog := cfg.Catalog()
	if !catalog.IsLegacyLifetime("premium_forever") || catalog.IsLegacyLifetime("premium_lifetime") {
		t.Fatalf("legacy ids must come from yaml: %+v", catalog.LegacyLifetimeProductIDs)
	}
	if period, ok := catalog.PlanPeriod("premium_weekly_test"); !ok || period != enums.SubscriptionTypeMonthly {
		t.Fatalf("unexpected plan period %q", period)
	}
	if period, ok := catalog.PlanPeriod("premium_yearly"); !ok || period != enums.SubscriptionTypeYearly {
		t.Fatalf("default plan periods should be kept, got %q", period)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Auth.Mode != AuthModeJWT {
		t.Fatalf("unexpected default auth mode: %s", cfg.Auth.Mode)
	}
	if cfg.Premium.EntitlementID != "premium" || cfg.Premium.CacheTTL != 5*time.Minute {
		t.Fatalf("unexpected premium defaults: %+v", cfg.Premium)
	}
	if len(cfg.Premium.LegacyLifetimeProductIDs) != 2 {
		t.Fatalf("unexpected legacy product defaults: %v", cfg.Premium.LegacyLifetimeProductIDs)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PREMIUM_LEGACY_LIFETIME_PRODUCT_IDS", " premium_unlock , ,legacy_pro ")
	t.Setenv("REVENUECAT_TIMEOUT", "3s")
	t.Setenv("REPAIR_MAX_ATTEMPTS", "7")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("CLEANUP_HISTORY_RETENTION", "720h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	want := []string{"premium_unlock", "legacy_pro"}
	if len(cfg.Premium.LegacyLifetimeProductIDs) != 2 ||
		cfg.Premium.LegacyLifetimeProductIDs[0] != want[0] ||
		cfg.Premium.LegacyLifetimeProductIDs[1] != want[1] {
		t.Fatalf("unexpected legacy ids: %v", cfg.Premium.LegacyLifetimeProductIDs)
	}
	if cfg.RevenueCat.Timeout != 3*time.Second || cfg.Repair.MaxAttempts != 7 {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.RevenueCat, cfg.Repair)
	}
	if cfg.RateLimit.PerMinute != 0 || cfg.RateLimit.Per10Sec != 5 {
		t.Fatalf("unexpected rate limit config: %+v", cfg.RateLimit)
	}
	if cfg.Cleanup.HistoryRetention != 720*time.Hour {
		t.Fatalf("unexpected cleanup retention: %v", cfg.Cleanup.HistoryRetention)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("AUTH_MODE", "basic")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unknown auth mode")
	}

	clearConfigEnv(t)
	t.Setenv("REPAIR_INTERVAL", "soon")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}

func TestLoadRejectsMissingSecretsInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error when production secrets are missing")
	}

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REVENUECAT_API_KEY", "rc-key")
	t.Setenv("GOOGLE_PLAY_PACKAGE_NAME", "com.example.app")
	if _, err := Load(""); err != nil {
		t.Fatalf("complete production config should load: %v", err)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"POSTGRES_MAX_CONNS",
		"POSTGRES_AUTO_MIGRATE",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_USE_SSL",
		"AUTH_MODE",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"FIREBASE_PROJECT_ID",
		"FIREBASE_CREDENTIALS_FILE",
		"REVENUECAT_BASE_URL",
		"REVENUECAT_API_KEY",
		"REVENUECAT_TIMEOUT",
		"GOOGLE_PLAY_PACKAGE_NAME",
		"GOOGLE_PLAY_SERVICE_ACCOUNT_FILE",
		"PREMIUM_ENTITLEMENT_ID",
		"PREMIUM_LEGACY_LIFETIME_PRODUCT_IDS",
		"PREMIUM_CACHE_TTL",
		"REPAIR_INTERVAL",
		"REPAIR_BATCH_SIZE",
		"REPAIR_MAX_ATTEMPTS",
		"REPAIR_INITIAL_DELAY",
		"REPAIR_MAX_DELAY",
		"REPAIR_REPORT_BUCKET",
		"CLEANUP_INTERVAL",
		"CLEANUP_HISTORY_RETENTION",
		"RATE_LIMIT_PER_MINUTE",
		"RATE_LIMIT_PER_10SEC",
		"VALIDATION_CLIENT_URL",
		"VALIDATION_CLIENT_TOKEN",
		"VALIDATION_CLIENT_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}
