package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// TenantRunner runs one date for many tenants. pipeline.Orchestrator
// satisfies it.
type TenantRunner interface {
	RunTenants(ctx context.Context, tenants []string, asOfDate string) ([]domain.RunResult, error)
}

// TenantLister discovers tenants when none are configured.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// Scheduler triggers the KPI job on a cron expression.
type Scheduler struct {
	cron    *cron.Cron
	runner  TenantRunner
	lister  TenantLister
	tenants []string
	timeout time.Duration
	loc     *time.Location
	now     func() time.Time

	mu      sync.Mutex
	started bool
}

// New builds a scheduler. schedule is a standard five-field cron expression
// evaluated in loc.
func New(schedule string, loc *time.Location, runner TenantRunner, lister TenantLister, tenants []string, timeout time.Duration) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		runner:  runner,
		lister:  lister,
		tenants: NormalizeTenants(tenants),
		timeout: timeout,
		loc:     loc,
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// tick runs one scheduled invocation. The date is fixed once so that every
// tenant lands on the same snapshot even when the run crosses midnight.
func (s *Scheduler) tick() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.RunOnce(ctx, s.today()); err != nil {
		log.Error().Err(err).Msg("kpi scheduler: scheduled run finished with errors")
	}
}

func (s *Scheduler) today() string {
	return s.now().In(s.loc).Format(domain.DateLayout)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	log.Info().Int("tenants", len(s.tenants)).Msg("kpi scheduler: started")
}

// Stop halts the schedule and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn().Msg("kpi scheduler: stop timed out with a run in flight")
	}
}

// RunOnce runs every tenant for asOfDate. An empty date means today in the
// scheduler's location, resolved once for all tenants.
func (s *Scheduler) RunOnce(ctx context.Context, asOfDate string) ([]domain.RunResult, error) {
	if asOfDate == "" {
		asOfDate = s.today()
	}
	tenants, err := s.resolveTenants(ctx)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		log.Warn().Msg("kpi scheduler: no tenants to run")
		return nil, nil
	}

	start := time.Now()
	results, err := s.runner.RunTenants(ctx, tenants, asOfDate)
	log.Info().
		Int("tenants", len(tenants)).
		Dur("duration", time.Since(start)).
		Bool("errors", err != nil).
		Msg("kpi scheduler: run finished")
	return results, err
}

func (s *Scheduler) resolveTenants(ctx context.Context) ([]string, error) {
	if len(s.tenants) > 0 {
		return s.tenants, nil
	}
	if s.lister == nil {
		return nil, nil
	}
	tenants, err := s.lister.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return NormalizeTenants(tenants), nil
}

// NormalizeTenants splits comma or space separated entries, trims them and
// drops duplicates while keeping order.
func NormalizeTenants(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, t := range strings.FieldsFunc(entry, func(r rune) bool { return r == ',' || r == ' ' }) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// cronLogger routes robfig/cron logs to the global zerolog logger. It reads
// log.Logger on every call so later level and format changes apply.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
