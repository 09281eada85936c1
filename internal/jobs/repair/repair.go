// Package repair replays entitlement resolution over every stored user and
// fixes premium documents that drifted from the subscription platform.
package repair

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
	"github.com/shamar-morrison/show-seek-sub001/internal/domain/rules"
)

const (
	resultUnchanged = "unchanged"
	resultUpdated   = "updated"
	resultFailed    = "failed"
	reportSource    = "repair"
	maxReportErrors = 100
)

type PremiumStore interface {
	Get(ctx context.Context, uid string) (model.ResolvedPremiumState, error)
	Upsert(ctx context.Context, uid string, state model.ResolvedPremiumState, source string, now time.Time) error
	ListUIDs(ctx context.Context, after string, limit int) ([]string, error)
}

type SubscriberFetcher interface {
	GetSubscriber(ctx context.Context, appUserID string) (model.SubscriberSnapshot, error)
}

type ReportUploader interface {
	PutJSON(ctx context.Context, key string, value any) error
}

type Recorder interface {
	ObserveRepair(result string)
}

type Dependencies struct {
	Premium     PremiumStore
	Subscribers SubscriberFetcher
	Reports     ReportUploader
	Recorder    Recorder
	Logger      *zap.Logger
}

type Config struct {
	BatchSize int
	Retry     RetryConfig
	Catalog   rules.Catalog
}

type Failure struct {
	UID   string `json:"uid"`
	Error string `json:"error"`
}

type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Checked    int       `json:"checked"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Failed     int       `json:"failed"`
	Failures   []Failure `json:"failures,omitempty"`
	ReportKey  string    `json:"-"`
}

type Job struct {
	premium     PremiumStore
	subscribers SubscriberFetcher
	reports     ReportUploader
	recorder    Recorder
	resolver    rules.Resolver
	batchSize   int
	retry       RetryConfig
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
	newRunID    func() string
	logger      *zap.Logger
}

func New(deps Dependencies, cfg Config) *Job {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 200
	}
	catalog := cfg.Catalog
	if len(catalog.LegacyLifetimeProductIDs) == 0 {
		catalog = rules.DefaultCatalog()
	}

	return &Job{
		premium:     deps.Premium,
		subscribers: deps.Subscribers,
		reports:     deps.Reports,
		recorder:    deps.Recorder,
		resolver:    rules.NewResolver(catalog),
		batchSize:   batchSize,
		retry:       cfg.Retry.normalized(),
		now:         time.Now,
		sleep:       sleepContext,
		newRunID:    uuid.NewString,
		logger:      logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	_, err := j.RunOnce(ctx)
	return err
}

// RunOnce walks every stored user once. Per-user failures are counted in the
// report; only listing failures and cancellation abort the run.
func (j *Job) RunOnce(ctx context.Context) (Report, error) {
	report := Report{
		RunID:     j.newRunID(),
		StartedAt: j.now().UTC(),
	}
	if j.premium == nil || j.subscribers == nil {
		return report, errors.New("repair job dependencies are not configured")
	}

	after := ""
	for {
		uids, err := j.premium.ListUIDs(ctx, after, j.batchSize)
		if err != nil {
			return report, fmt.Errorf("list premium users: %w", err)
		}
		if len(uids) == 0 {
			break
		}

		for _, uid := range uids {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Checked++
			updated, err := j.repairUser(ctx, uid)
			switch {
			case err != nil:
				report.Failed++
				if len(report.Failures) < maxReportErrors {
					report.Failures = append(report.Failures, Failure{UID: uid, Error: err.Error()})
				}
				j.observe(resultFailed)
				j.logger.Warn("repair premium user failed", zap.String("uid", uid), zap.Error(err))
			case updated:
				report.Updated++
				j.observe(resultUpdated)
			default:
				report.Unchanged++
				j.observe(resultUnchanged)
			}
		}

		after = uids[len(uids)-1]
		if len(uids) < j.batchSize {
			break
		}
	}

	report.FinishedAt = j.now().UTC()
	j.uploadReport(ctx, &report)

	j.logger.Info("premium repair completed",
		zap.String("run_id", report.RunID),
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// Loop runs the job every interval until ctx is done.
func (j *Job) Loop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.Run(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("premium repair run failed", zap.Error(err))
			}
		}
	}
}

func (j *Job) repairUser(ctx context.Context, uid string) (bool, error) {
	snapshot, attempts, err := withRetry(ctx, j.retry, j.sleep, func(ctx context.Context) (model.SubscriberSnapshot, error) {
		return j.subscribers.GetSubscriber(ctx, uid)
	})
	if err != nil {
		return false, fmt.Errorf("fetch subscriber: %w", err)
	}
	if attempts > 1 {
		j.logger.Debug("subscriber fetched after retries", zap.String("uid", uid), zap.Int("attempts", attempts))
	}

	now := j.now().UTC()
	resolved := j.resolver.Resolve(snapshot, now.UnixMilli())

	stored, err := j.premium.Get(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("get stored premium state: %w", err)
	}
	resolved = rules.PreferStoredLifetime(stored, resolved)
	if stored.Equivalent(resolved) {
		return false, nil
	}

	if err := j.premium.Upsert(ctx, uid, resolved, reportSource, now); err != nil {
		return false, fmt.Errorf("store premium state: %w", err)
	}
	j.logger.Info("premium state repaired",
		zap.String("uid", uid),
		zap.String("from", string(stored.EntitlementType)),
		zap.String("to", string(resolved.EntitlementType)),
	)
	return true, nil
}

func (j *Job) uploadReport(ctx context.Context, report *Report) {
	if j.reports == nil {
		return
	}
	key := fmt.Sprintf("repair/%s/%s.json", report.StartedAt.Format("2006-01-02"), report.RunID)
	if err := j.reports.PutJSON(ctx, key, report); err != nil {
		j.logger.Warn("upload repair report", zap.String("key", key), zap.Error(err))
		return
	}
	report.ReportKey = key
}

func (j *Job) observe(result string) {
	if j.recorder != nil {
		j.recorder.ObserveRepair(result)
	}
}
