package pipeline

import (
	"context"
	"sync"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type pageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// fetchAll concatenates pages until one comes back short. A failed page stops
// paging; the rows gathered so far are returned together with the issue.
func fetchAll[T any](ctx context.Context, relation string, pageSize int, page pageFunc[T]) ([]T, *LoadIssue) {
	var all []T
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return all, &LoadIssue{Relation: relation, RowsKept: len(all), Err: err}
		}

		rows, err := page(ctx, offset, pageSize)
		if err != nil {
			log.Warn().
				Err(err).
				Str("relation", relation).
				Int("offset", offset).
				Int("rows_kept", len(all)).
				Msg("kpi loader: page fetch failed, continuing with partial data")
			return all, &LoadIssue{Relation: relation, RowsKept: len(all), Err: err}
		}

		all = append(all, rows...)
		if len(rows) < pageSize {
			return all, nil
		}
	}
}

// Loader fetches the four input relations of a tenant
type Loader struct {
	source   repository.InputRepository
	pageSize int
}

func NewLoader(source repository.InputRepository, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Loader{source: source, pageSize: pageSize}
}

// Load reads all inputs concurrently. Issues are returned in relation order.
func (l *Loader) Load(ctx context.Context, tenantID string) (Inputs, []LoadIssue) {
	var (
		in     Inputs
		mu     sync.Mutex
		issues = make(map[string]LoadIssue)
	)
	report := func(issue *LoadIssue) {
		if issue == nil {
			return
		}
		mu.Lock()
		issues[issue.Relation] = *issue
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		rows, issue := fetchAll(ctx, RelationStores, l.pageSize, func(ctx context.Context, offset, limit int) ([]domain.Store, error) {
			return l.source.StoresPage(ctx, tenantID, offset, limit)
		})
		in.Stores = rows
		report(issue)
		return nil
	})
	g.Go(func() error {
		rows, issue := fetchAll(ctx, RelationPositions, l.pageSize, func(ctx context.Context, offset, limit int) ([]domain.InventoryPosition, error) {
			return l.source.PositionsPage(ctx, tenantID, offset, limit)
		})
		in.Positions = rows
		report(issue)
		return nil
	})
	g.Go(func() error {
		rows, issue := fetchAll(ctx, RelationDemand, l.pageSize, func(ctx context.Context, offset, limit int) ([]domain.DemandSignal, error) {
			return l.source.DemandPage(ctx, tenantID, offset, limit)
		})
		in.Demand = rows
		report(issue)
		return nil
	})
	g.Go(func() error {
		rows, issue := fetchAll(ctx, RelationSizeMappings, l.pageSize, func(ctx context.Context, offset, limit int) ([]domain.SizeMapping, error) {
			return l.source.SizeMappingsPage(ctx, tenantID, offset, limit)
		})
		in.SizeMappings = rows
		report(issue)
		return nil
	})
	_ = g.Wait()

	var ordered []LoadIssue
	for _, rel := range []string{RelationStores, RelationPositions, RelationDemand, RelationSizeMappings} {
		if issue, ok := issues[rel]; ok {
			ordered = append(ordered, issue)
		}
	}
	return in, ordered
}
