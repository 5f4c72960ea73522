package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/pipeline/kpi"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = domain.SnapshotKey{TenantID: "t1", AsOfDate: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)}

func newTestEngine(t *testing.T, src *memSource, store *memStore, pageSize int) *Engine {
	t.Helper()
	cost, err := kpi.NewFlatCost("10")
	require.NoError(t, err)
	return NewEngine(src, store, cost, Config{PageSize: pageSize, WriteBatchSize: 2})
}

func TestEngineRunWritesEveryRelation(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, fixtureSource(), store, 2)

	report, err := eng.Run(context.Background(), testKey)
	require.NoError(t, err)

	res := report.Result
	assert.True(t, res.Success)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "2026-10-14", res.Date)
	assert.Equal(t, 1, res.IDIRows)
	assert.Equal(t, 2, res.SCSRows)
	assert.Equal(t, 1, res.CHIRows)
	assert.Equal(t, 1, res.GapRows)

	gap := report.Outputs.NetworkGap[0]
	assert.Equal(t, 1300, gap.TrueShortageUnits)
	assert.Equal(t, 1050, gap.ReallocatableUnits)
	assert.Equal(t, 1750, gap.NetGapUnits)
}

func TestEngineRunIsIdempotent(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, fixtureSource(), store, 1000)

	first, err := eng.Run(context.Background(), testKey)
	require.NoError(t, err)
	snapshot := make(map[string][][]interface{})
	for _, table := range repository.SnapshotTables() {
		snapshot[table.Name] = store.rows(table.Name, testKey.String())
	}

	second, err := eng.Run(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, first.Outputs, second.Outputs)
	for _, table := range repository.SnapshotTables() {
		assert.Equal(t, snapshot[table.Name], store.rows(table.Name, testKey.String()), table.Name)
	}
}

func TestEngineRunEmptyInputs(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, newMemSource(), store, 1000)

	report, err := eng.Run(context.Background(), testKey)
	require.NoError(t, err)

	assert.True(t, report.Result.Success)
	assert.Empty(t, report.Result.Errors)
	assert.Zero(t, report.Result.TotalRows())
	assert.Zero(t, store.replace, "nothing computed means nothing replaced")
}

func TestEngineRunDegradesOnFetchFailure(t *testing.T) {
	src := fixtureSource()
	src.failPositionsAt = 2
	store := newMemStore()
	eng := newTestEngine(t, src, store, 2)

	report, err := eng.Run(context.Background(), testKey)
	require.NoError(t, err)

	assert.True(t, report.Result.Success)
	assert.True(t, report.Result.Degraded)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, RelationPositions, report.Issues[0].Relation)
	assert.Equal(t, 2, report.Issues[0].RowsKept)
	assert.Contains(t, report.Result.Errors[0], "load inventory_positions")
	assert.Equal(t, domain.RunPartial, report.Result.Status())
}

func TestEngineRunIsolatesWriteFailures(t *testing.T) {
	store := newMemStore()
	store.fail[repository.CompletenessTable.Name] = errors.New("deadlock detected")
	eng := newTestEngine(t, fixtureSource(), store, 1000)

	report, err := eng.Run(context.Background(), testKey)
	require.NoError(t, err)

	res := report.Result
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.IDIRows)
	assert.Equal(t, 0, res.SCSRows)
	assert.Equal(t, 1, res.CHIRows)
	assert.Equal(t, 1, res.GapRows)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "write kpi_size_completeness: deadlock detected")
}

func TestEngineRunStopsBeforeWriteWhenCanceled(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, fixtureSource(), store, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := eng.Run(ctx, testKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, report.Result.Success)
	assert.True(t, report.Result.Degraded)
	assert.Zero(t, store.replace)
}
