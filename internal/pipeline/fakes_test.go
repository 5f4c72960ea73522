package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
)

type memSource struct {
	stores    []domain.Store
	positions []domain.InventoryPosition
	demand    []domain.DemandSignal
	sizes     []domain.SizeMapping

	// failPositionsAt makes the positions page at this offset fail when >= 0.
	failPositionsAt int

	mu    sync.Mutex
	calls map[string]int
}

func newMemSource() *memSource {
	return &memSource{failPositionsAt: -1, calls: make(map[string]int)}
}

func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return append([]T(nil), rows[offset:end]...)
}

func (m *memSource) count(rel string) {
	m.mu.Lock()
	m.calls[rel]++
	m.mu.Unlock()
}

func (m *memSource) StoresPage(_ context.Context, _ string, offset, limit int) ([]domain.Store, error) {
	m.count(RelationStores)
	return page(m.stores, offset, limit), nil
}

func (m *memSource) PositionsPage(_ context.Context, _ string, offset, limit int) ([]domain.InventoryPosition, error) {
	m.count(RelationPositions)
	if m.failPositionsAt >= 0 && offset >= m.failPositionsAt {
		return nil, errors.New("connection reset")
	}
	return page(m.positions, offset, limit), nil
}

func (m *memSource) DemandPage(_ context.Context, _ string, offset, limit int) ([]domain.DemandSignal, error) {
	m.count(RelationDemand)
	return page(m.demand, offset, limit), nil
}

func (m *memSource) SizeMappingsPage(_ context.Context, _ string, offset, limit int) ([]domain.SizeMapping, error) {
	m.count(RelationSizeMappings)
	return page(m.sizes, offset, limit), nil
}

func (m *memSource) ListTenants(context.Context) ([]string, error) {
	return []string{"t1"}, nil
}

type memStore struct {
	mu      sync.Mutex
	tables  map[string]map[string][][]interface{}
	fail    map[string]error
	replace int
}

func newMemStore() *memStore {
	return &memStore{
		tables: make(map[string]map[string][][]interface{}),
		fail:   make(map[string]error),
	}
}

func (m *memStore) Replace(_ context.Context, table repository.SnapshotTable, key domain.SnapshotKey, rows [][]interface{}, _ int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace++
	if err := m.fail[table.Name]; err != nil {
		return 0, err
	}
	byKey, ok := m.tables[table.Name]
	if !ok {
		byKey = make(map[string][][]interface{})
		m.tables[table.Name] = byKey
	}
	byKey[key.String()] = append([][]interface{}(nil), rows...)
	return len(rows), nil
}

func (m *memStore) rows(table, key string) [][]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tables[table][key]
}

// fixtureSource yields one record in every relation except completeness, which gets two.
func fixtureSource() *memSource {
	src := newMemSource()
	src.stores = []domain.Store{
		{ID: "A", IsActive: true, LocationType: domain.LocationRetail},
		{ID: "B", IsActive: true, LocationType: domain.LocationRetail},
		{ID: "W", IsActive: true, LocationType: domain.LocationCentralWarehouse},
	}
	src.sizes = []domain.SizeMapping{
		{StyleID: "S", SKU: "S-S", SizeCode: "S"},
		{StyleID: "S", SKU: "S-M", SizeCode: "M"},
		{StyleID: "S", SKU: "S-L", SizeCode: "L"},
	}
	src.positions = []domain.InventoryPosition{
		{StoreID: "A", StyleID: "S", SKU: "S-S", OnHand: 100},
		{StoreID: "B", StyleID: "S", SKU: "S-M", OnHand: 400},
		{StoreID: "W", StyleID: "S", SKU: "S-L", OnHand: 1000},
	}
	src.demand = []domain.DemandSignal{
		{StoreID: "A", StyleID: "S", AvgDailySales: 50, SalesVelocity: 10},
		{StoreID: "B", StyleID: "S", AvgDailySales: 50, SalesVelocity: 10},
	}
	return src
}
