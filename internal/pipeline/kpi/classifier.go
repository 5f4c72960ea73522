package kpi

import "github.com/andresuchdata/controltower/backend-go/internal/domain"

// StoreIndex partitions the store master. Retail holds active non-warehouse
// stores; Active holds every active store including warehouses.
type StoreIndex struct {
	Retail map[string]domain.Store
	Active map[string]domain.Store
}

// ClassifyStores builds the retail and active partitions.
func ClassifyStores(stores []domain.Store) StoreIndex {
	idx := StoreIndex{
		Retail: make(map[string]domain.Store),
		Active: make(map[string]domain.Store),
	}
	for _, s := range stores {
		if !s.IsActive {
			continue
		}
		idx.Active[s.ID] = s
		if s.IsRetail() {
			idx.Retail[s.ID] = s
		}
	}
	return idx
}

func (i StoreIndex) IsRetail(storeID string) bool {
	_, ok := i.Retail[storeID]
	return ok
}

func (i StoreIndex) IsActive(storeID string) bool {
	_, ok := i.Active[storeID]
	return ok
}
