package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// TenantRunner runs the KPI job for a single tenant.
type TenantRunner func(ctx context.Context, req domain.RunRequest) (domain.RunResult, error)

// Orchestrator fans a run for one date out over many tenants.
type Orchestrator struct {
	run         TenantRunner
	workerCount int
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(run TenantRunner, workerCount int) *Orchestrator {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Orchestrator{run: run, workerCount: workerCount}
}

// RunTenants runs every tenant on a bounded worker pool. Results keep the
// order of tenants; a failing tenant never stops the others and all failures
// are joined into the returned error.
func (o *Orchestrator) RunTenants(ctx context.Context, tenants []string, asOfDate string) ([]domain.RunResult, error) {
	if len(tenants) == 0 {
		return nil, nil
	}

	results := make([]domain.RunResult, len(tenants))
	errs := make([]error, len(tenants))
	jobChan := make(chan int, len(tenants))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < o.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobChan {
				tenant := tenants[idx]
				res, err := o.run(ctx, domain.RunRequest{TenantID: tenant, AsOfDate: asOfDate})
				results[idx] = res
				if err != nil {
					log.Error().Err(err).Int("worker", workerID).Str("tenant_id", tenant).Msg("kpi orchestrator: tenant run failed")
					errs[idx] = fmt.Errorf("tenant %s: %w", tenant, err)
				}
			}
		}(i)
	}

	// Enqueue jobs
	for idx := range tenants {
		jobChan <- idx
	}
	close(jobChan)

	wg.Wait()

	return results, errors.Join(errs...)
}
