package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/cache"
	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/metrics"
	"github.com/andresuchdata/controltower/backend-go/internal/pipeline"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/andresuchdata/controltower/backend-go/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultJobTimeout = 5 * time.Minute
	defaultLockTTL    = 10 * time.Minute
	ledgerTimeout     = 10 * time.Second
)

// Engine is the part of pipeline.Engine the service drives.
type Engine interface {
	Run(ctx context.Context, key domain.SnapshotKey) (*pipeline.Report, error)
}

// Options configures a KPIService. Nil collaborators fall back to no-op or
// in-process implementations.
type Options struct {
	Lock       cache.RunLock
	Cache      cache.SummaryCache
	Archive    storage.SnapshotArchiver
	Metrics    *metrics.Recorder
	JobTimeout time.Duration
	LockTTL    time.Duration
	Location   *time.Location
}

type KPIService struct {
	engine     Engine
	runs       repository.RunRepository
	lock       cache.RunLock
	cache      cache.SummaryCache
	archive    storage.SnapshotArchiver
	metrics    *metrics.Recorder
	jobTimeout time.Duration
	lockTTL    time.Duration
	loc        *time.Location
	now        func() time.Time
}

func NewKPIService(engine Engine, runs repository.RunRepository, opts Options) *KPIService {
	s := &KPIService{
		engine:     engine,
		runs:       runs,
		lock:       opts.Lock,
		cache:      opts.Cache,
		archive:    opts.Archive,
		metrics:    opts.Metrics,
		jobTimeout: opts.JobTimeout,
		lockTTL:    opts.LockTTL,
		loc:        opts.Location,
		now:        time.Now,
	}
	if s.lock == nil {
		s.lock = cache.NewLocalRunLock()
	}
	if s.cache == nil {
		s.cache = cache.NewNoopSummaryCache()
	}
	if s.archive == nil {
		s.archive = storage.NewNoopArchiver()
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// Run executes the KPI job for one tenant and date. Validation and lock
// contention are returned as errors wrapping the domain sentinels; a run
// that reached the engine always yields a result even when it failed.
func (s *KPIService) Run(ctx context.Context, req domain.RunRequest) (domain.RunResult, error) {
	key, err := domain.ParseSnapshotKey(req, s.now(), s.loc)
	if err != nil {
		return rejected(req, err), err
	}

	lockKey := cache.RunLockKey(key.TenantID, key.Date())
	acquired, err := s.lock.TryLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		log.Warn().Err(err).Str("lock", lockKey).Msg("kpi service: run lock unavailable, continuing unlocked")
	} else if !acquired {
		return rejected(req, domain.ErrRunInProgress), fmt.Errorf("%w: %s", domain.ErrRunInProgress, key)
	}
	defer func() {
		if err := s.lock.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			log.Warn().Err(err).Str("lock", lockKey).Msg("kpi service: release run lock failed")
		}
	}()

	start := s.now()
	record := &domain.RunRecord{
		ID:        uuid.NewString(),
		TenantID:  key.TenantID,
		AsOfDate:  key.AsOfDate,
		Status:    domain.RunRunning,
		StartedAt: start,
	}
	s.withLedger(ctx, func(lctx context.Context) error { return s.runs.CreateRun(lctx, record) })

	runCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	report, runErr := s.engine.Run(runCtx, key)
	var result domain.RunResult
	if report != nil {
		result = report.Result
		for _, issue := range report.Issues {
			s.metrics.ObserveTruncation(issue.Relation)
		}
	} else {
		result = domain.RunResult{TenantID: key.TenantID, Date: key.Date()}
	}
	result.RunID = record.ID
	if runErr != nil {
		result.Success = false
		if len(result.Errors) == 0 {
			result.Errors = []string{runErr.Error()}
		}
	}

	if result.Success && report != nil && result.TotalRows() > 0 {
		if err := s.archive.Archive(runCtx, key, report.Outputs); err != nil {
			log.Warn().Err(err).Str("tenant_id", key.TenantID).Str("as_of_date", key.Date()).Msg("kpi service: snapshot archive failed")
			result.Errors = append(result.Errors, fmt.Sprintf("archive: %v", err))
		}
	}

	s.publish(context.WithoutCancel(ctx), result)

	completedAt := s.now()
	record.Status = result.Status()
	record.IDIRows = result.IDIRows
	record.SCSRows = result.SCSRows
	record.CHIRows = result.CHIRows
	record.GapRows = result.GapRows
	record.Degraded = result.Degraded
	record.Errors = result.Errors
	record.CompletedAt = &completedAt
	s.withLedger(ctx, func(lctx context.Context) error { return s.runs.CompleteRun(lctx, record) })

	s.metrics.ObserveRun(result, completedAt.Sub(start))

	if runErr != nil {
		return result, fmt.Errorf("kpi run %s: %w", key, runErr)
	}
	return result, nil
}

// Latest returns the newest run summary of a tenant, optionally for a single
// date. It returns nil when the tenant has no runs.
func (s *KPIService) Latest(ctx context.Context, tenantID, asOfDate string) (*domain.RunResult, error) {
	tenantID = strings.TrimSpace(tenantID)
	asOfDate = strings.TrimSpace(asOfDate)
	if tenantID == "" {
		return nil, domain.ErrMissingTenant
	}
	if asOfDate != "" {
		if _, err := time.Parse(domain.DateLayout, asOfDate); err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDate, asOfDate)
		}
	}

	if result, ok, err := s.cache.GetSummary(ctx, tenantID, asOfDate); err == nil && ok {
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("kpi service: cache get summary failed")
	}

	if s.runs == nil {
		return nil, nil
	}
	record, err := s.runs.LatestRun(ctx, tenantID, asOfDate)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	result := record.Result()
	if asOfDate == "" && record.Status != domain.RunRunning {
		if err := s.cache.SetSummary(ctx, result); err != nil {
			log.Warn().Err(err).Msg("kpi service: cache set summary failed")
		}
	}
	return &result, nil
}

func (s *KPIService) publish(ctx context.Context, result domain.RunResult) {
	if !result.Success {
		return
	}
	if err := s.cache.SetSummary(ctx, result); err != nil {
		log.Warn().Err(err).Str("tenant_id", result.TenantID).Msg("kpi service: cache set summary failed")
	}
	if err := s.cache.InvalidateDashboards(ctx, result.TenantID); err != nil {
		log.Warn().Err(err).Str("tenant_id", result.TenantID).Msg("kpi service: dashboard cache invalidation failed")
	}
}

// withLedger runs a ledger write detached from the caller's deadline. Ledger
// failures are logged only.
func (s *KPIService) withLedger(ctx context.Context, fn func(context.Context) error) {
	if s.runs == nil {
		return
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()
	if err := fn(lctx); err != nil {
		log.Error().Err(err).Msg("kpi service: run ledger write failed")
	}
}

func rejected(req domain.RunRequest, err error) domain.RunResult {
	return domain.RunResult{
		TenantID: strings.TrimSpace(req.TenantID),
		Success:  false,
		Date:     strings.TrimSpace(req.AsOfDate),
		Errors:   []string{err.Error()},
	}
}

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrMissingTenant) || errors.Is(err, domain.ErrInvalidDate)
}
