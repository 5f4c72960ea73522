package pipeline

import (
	"context"
	"fmt"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// SnapshotWriter replaces each output relation for a tenant and date
type SnapshotWriter struct {
	store     repository.SnapshotRepository
	batchSize int
}

func NewSnapshotWriter(store repository.SnapshotRepository, batchSize int) *SnapshotWriter {
	if batchSize <= 0 {
		batchSize = DefaultWriteBatchSize
	}
	return &SnapshotWriter{store: store, batchSize: batchSize}
}

// Write handles every relation independently: a failure in one is reported and
// the next relation is still written. Relations with no computed rows are left
// untouched.
func (w *SnapshotWriter) Write(ctx context.Context, key domain.SnapshotKey, out Outputs) WriteSummary {
	summary := WriteSummary{Rows: make(map[string]int, 4)}

	batches := []struct {
		table repository.SnapshotTable
		rows  [][]interface{}
	}{
		{repository.DistortionTable, repository.DistortionRows(out.Distortion)},
		{repository.CompletenessTable, repository.CompletenessRows(out.Completeness)},
		{repository.CurveHealthTable, repository.CurveHealthRows(out.CurveHealth)},
		{repository.NetworkGapTable, repository.NetworkGapRows(out.NetworkGap)},
	}

	for _, b := range batches {
		summary.Rows[b.table.Name] = 0
		if len(b.rows) == 0 {
			continue
		}

		n, err := w.store.Replace(ctx, b.table, key, b.rows, w.batchSize)
		if err != nil {
			log.Error().
				Err(err).
				Str("tenant_id", key.TenantID).
				Str("as_of_date", key.Date()).
				Str("relation", b.table.Name).
				Msg("kpi writer: snapshot replace failed")
			summary.Errors = append(summary.Errors, fmt.Sprintf("write %s: %v", b.table.Name, err))
			continue
		}
		summary.Rows[b.table.Name] = n
	}

	return summary
}
