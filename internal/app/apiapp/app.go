package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shamar-morrison/show-seek-sub001/internal/config"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/billing"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/googleplay"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/httpclient"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/metrics"
	"github.com/shamar-morrison/show-seek-sub001/internal/infra/revenuecat"
	s3infra "github.com/shamar-morrison/show-seek-sub001/internal/infra/s3"
	cleanupjob "github.com/shamar-morrison/show-seek-sub001/internal/jobs/cleanup"
	repairjob "github.com/shamar-morrison/show-seek-sub001/internal/jobs/repair"
	pgrepo "github.com/shamar-morrison/show-seek-sub001/internal/repo/postgres"
	redrepo "github.com/shamar-morrison/show-seek-sub001/internal/repo/redis"
	authsvc "github.com/shamar-morrison/show-seek-sub001/internal/services/auth"
	ratesvc "github.com/shamar-morrison/show-seek-sub001/internal/services/rate"
	restoresvc "github.com/shamar-morrison/show-seek-sub001/internal/services/restore"
	validationsvc "github.com/shamar-morrison/show-seek-sub001/internal/services/validation"
	"github.com/shamar-morrison/show-seek-sub001/internal/transport/http/handlers"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	repair     *repairjob.Job
	cleanup    *cleanupjob.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, pgrepo.PoolConfig{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        int32(cfg.Postgres.MaxConns),
		MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
	}); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if cfg.Postgres.AutoMigrate {
			if err := pgrepo.Migrate(ctx, cfg.Postgres.DSN); err != nil {
				log.Warn("postgres migrations failed", zap.Error(err))
			}
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	premiumRepo := pgrepo.NewPremiumRepo(pool)
	tokenRepo := pgrepo.NewPurchaseTokenRepo(pool)
	cacheRepo := redrepo.NewPremiumCacheRepo(redisClient, cfg.Premium.CacheTTL)
	rateLimiter := ratesvc.NewLimiter(redrepo.NewRateRepo(redisClient), cfg.RateLimit.PerMinute, cfg.RateLimit.Per10Sec)

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init auth verifier: %w", err)
	}
	authService := authsvc.NewService(verifier)

	catalog := cfg.Catalog()
	recorder := metrics.Recorder{}

	var subscribers *revenuecat.Client
	if cfg.RevenueCat.APIKey != "" {
		subscribers = revenuecat.NewClient(revenuecat.Config{
			BaseURL: cfg.RevenueCat.BaseURL,
			APIKey:  cfg.RevenueCat.APIKey,
		}, httpclient.New(cfg.RevenueCat.Timeout, ""))
	} else {
		log.Warn("revenuecat api key is empty, premium status falls back to stored state")
	}

	validationDeps := validationsvc.Dependencies{
		Premium:  premiumRepo,
		Tokens:   tokenRepo,
		Cache:    cacheRepo,
		Catalog:  catalog,
		Logger:   log.Named("validation"),
		Recorder: recorder,
	}
	if subscribers != nil {
		validationDeps.Subscribers = subscribers
	}
	if cfg.GooglePlay.PackageName != "" {
		play, err := googleplay.NewClient(ctx, googleplay.Config{
			PackageName:        cfg.GooglePlay.PackageName,
			ServiceAccountFile: cfg.GooglePlay.ServiceAccountFile,
		})
		if err != nil {
			log.Warn("google play init failed, purchase validation disabled", zap.Error(err))
		} else {
			validationDeps.Play = play
		}
	} else {
		log.Warn("google play package name is empty, purchase validation disabled")
	}
	validationService := validationsvc.NewService(validationDeps)

	billingConn := billing.NewConnection(
		func(context.Context) error {
			metrics.BillingConnections.Set(1)
			return nil
		},
		func(context.Context) error {
			metrics.BillingConnections.Set(0)
			return nil
		},
	)

	restoreDeps := handlers.RestoreDependencies{
		ValidatorFor: func(uid string) restoresvc.Validator {
			return validationService.ForUser(uid)
		},
		Connection: billingConn,
		Catalog:    catalog,
		Logger:     log.Named("restore"),
		Outcomes:   recorder,
	}
	if subscribers != nil {
		restoreDeps.Subscribers = subscribers
	}

	var repair *repairjob.Job
	if subscribers != nil && pool != nil {
		repairDeps := repairjob.Dependencies{
			Premium:     premiumRepo,
			Subscribers: subscribers,
			Recorder:    recorder,
			Logger:      log.Named("repair"),
		}
		if bucket, err := s3infra.OpenBucket(s3infra.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		}, cfg.Repair.ReportBucket); err != nil {
			log.Warn("s3 init failed, repair reports will not be uploaded", zap.Error(err))
		} else {
			repairDeps.Reports = bucket
		}
		repair = repairjob.New(repairDeps, RepairConfig(cfg))
	}

	var cleanup *cleanupjob.Job
	if pool != nil {
		cleanup = cleanupjob.New(premiumRepo, cfg.Cleanup.HistoryRetention, log.Named("cleanup"))
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:       authService,
		ValidationService: validationService,
		Restore:           restoreDeps,
		RateLimiter:       rateLimiter,
		Logger:            log,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		repair:     repair,
		cleanup:    cleanup,
		httpRouter: r,
	}, nil
}

// RepairConfig maps the repair section of the configuration onto the job.
func RepairConfig(cfg config.Config) repairjob.Config {
	return repairjob.Config{
		BatchSize: cfg.Repair.BatchSize,
		Retry: repairjob.RetryConfig{
			MaxAttempts:  cfg.Repair.MaxAttempts,
			InitialDelay: cfg.Repair.InitialDelay,
			MaxDelay:     cfg.Repair.MaxDelay,
		},
		Catalog: cfg.Catalog(),
	}
}

func newVerifier(ctx context.Context, cfg config.Config) (authsvc.Verifier, error) {
	if cfg.AuthMode() == config.AuthModeFirebase {
		return authsvc.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
	}
	return authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL), nil
}

// Run serves HTTP and runs the background jobs until ctx is done or one of them
// fails, then shuts the server down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if a.repair != nil {
		g.Go(func() error {
			a.logger.Info("premium repair loop started", zap.Duration("interval", a.cfg.Repair.Interval))
			return a.repair.Loop(gctx, a.cfg.Repair.Interval)
		})
	}

	if a.cleanup != nil {
		g.Go(func() error {
			return a.cleanup.Loop(gctx, a.cfg.Cleanup.Interval)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
