package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllStopsOnShortPage(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	calls := 0
	got, issue := fetchAll(context.Background(), "numbers", 2, func(_ context.Context, offset, limit int) ([]int, error) {
		calls++
		return page(rows, offset, limit), nil
	})

	assert.Nil(t, issue)
	assert.Equal(t, rows, got)
	assert.Equal(t, 3, calls)
}

func TestFetchAllRequestsTrailingEmptyPage(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	calls := 0
	got, issue := fetchAll(context.Background(), "numbers", 2, func(_ context.Context, offset, limit int) ([]int, error) {
		calls++
		return page(rows, offset, limit), nil
	})

	assert.Nil(t, issue)
	assert.Equal(t, rows, got)
	assert.Equal(t, 3, calls)
}

func TestFetchAllKeepsRowsBeforeFailure(t *testing.T) {
	got, issue := fetchAll(context.Background(), "numbers", 2, func(_ context.Context, offset, limit int) ([]int, error) {
		if offset >= 4 {
			return nil, errors.New("permission denied")
		}
		return []int{offset, offset + 1}, nil
	})

	require.NotNil(t, issue)
	assert.Equal(t, []int{0, 1, 2, 3}, got)
	assert.Equal(t, 4, issue.RowsKept)
	assert.EqualError(t, issue, "load numbers: permission denied")
}

func TestLoaderLoadsAllRelations(t *testing.T) {
	src := fixtureSource()
	in, issues := NewLoader(src, 2).Load(context.Background(), "t1")

	assert.Empty(t, issues)
	assert.Len(t, in.Stores, 3)
	assert.Len(t, in.Positions, 3)
	assert.Len(t, in.Demand, 2)
	assert.Len(t, in.SizeMappings, 3)
	assert.Equal(t, 2, src.calls[RelationStores])
	assert.Equal(t, 2, src.calls[RelationDemand])
}
