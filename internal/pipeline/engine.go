package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/pipeline/kpi"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Engine runs Load → Classify → {IDI, SCS→CHI, Network Gap} → Write for one
// tenant and date.
type Engine struct {
	loader       *Loader
	writer       *SnapshotWriter
	distortion   *kpi.DistortionCalculator
	completeness *kpi.CompletenessCalculator
	curveHealth  *kpi.CurveHealthCalculator
	networkGap   *kpi.NetworkGapCalculator
}

// NewEngine wires the calculators around a source and a snapshot store.
func NewEngine(source repository.InputRepository, store repository.SnapshotRepository, cost kpi.CostModel, cfg Config) *Engine {
	cfg = cfg.normalized()
	return &Engine{
		loader:       NewLoader(source, cfg.PageSize),
		writer:       NewSnapshotWriter(store, cfg.WriteBatchSize),
		distortion:   kpi.NewDistortionCalculator(cost),
		completeness: kpi.NewCompletenessCalculator(),
		curveHealth:  kpi.NewCurveHealthCalculator(),
		networkGap:   kpi.NewNetworkGapCalculator(cost),
	}
}

// Compute runs the calculators over already loaded inputs. IDI, SCS and the
// network gap run concurrently; CHI follows SCS.
func (e *Engine) Compute(ctx context.Context, in Inputs) (Outputs, error) {
	stores := kpi.ClassifyStores(in.Stores)
	sizes := kpi.NewSizeIndex(in.SizeMappings)

	var out Outputs
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Distortion = e.distortion.Calculate(in.Positions, in.Demand, stores)
		return nil
	})
	g.Go(func() error {
		out.Completeness = e.completeness.Calculate(in.Positions, sizes, stores)
		out.CurveHealth = e.curveHealth.Calculate(out.Completeness)
		return nil
	})
	g.Go(func() error {
		out.NetworkGap = e.networkGap.Calculate(in.Positions, in.Demand, stores)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Outputs{}, err
	}
	return out, ctx.Err()
}

// Run executes one invocation. Input fetch failures degrade the result instead
// of failing it; an expired context before the write stage fails the run and
// leaves every snapshot untouched.
func (e *Engine) Run(ctx context.Context, key domain.SnapshotKey) (*Report, error) {
	start := time.Now()
	report := &Report{
		Result: domain.RunResult{
			TenantID: key.TenantID,
			Date:     key.Date(),
		},
	}

	in, issues := e.loader.Load(ctx, key.TenantID)
	report.Issues = issues
	for _, issue := range issues {
		report.Result.Degraded = true
		report.Result.Errors = append(report.Result.Errors, issue.Error())
	}

	out, err := e.Compute(ctx, in)
	if err != nil {
		report.Result.Errors = append(report.Result.Errors, fmt.Sprintf("run aborted before write: %v", err))
		return report, fmt.Errorf("compute kpis for %s: %w", key, err)
	}
	report.Outputs = out

	summary := e.writer.Write(ctx, key, out)
	report.Result.Success = true
	report.Result.IDIRows = summary.Rows[repository.DistortionTable.Name]
	report.Result.SCSRows = summary.Rows[repository.CompletenessTable.Name]
	report.Result.CHIRows = summary.Rows[repository.CurveHealthTable.Name]
	report.Result.GapRows = summary.Rows[repository.NetworkGapTable.Name]
	report.Result.Errors = append(report.Result.Errors, summary.Errors...)

	log.Info().
		Str("tenant_id", key.TenantID).
		Str("as_of_date", key.Date()).
		Int("positions", len(in.Positions)).
		Int("idi_rows", report.Result.IDIRows).
		Int("scs_rows", report.Result.SCSRows).
		Int("chi_rows", report.Result.CHIRows).
		Int("gap_rows", report.Result.GapRows).
		Bool("degraded", report.Result.Degraded).
		Int("errors", len(report.Result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("kpi engine: run finished")

	return report, nil
}
