package crawler

import (
	"sync"

	"github.com/samber/lo"
)

// DealStore maps an item name to its best offer
type DealStore map[string]ItemRecord

// Absorb keeps rec if its name is new or it is strictly cheaper than the
// stored offer. Ties keep the first offer seen.
func Absorb(store DealStore, rec ItemRecord) {
	stored, ok := store[rec.Name]
	if !ok || rec.Current < stored.Current {
		store[rec.Name] = rec
	}
}

// Fold reduces records to the cheapest offer per name
func Fold(records []ItemRecord) DealStore {
	return lo.Reduce(records, func(store DealStore, rec ItemRecord, _ int) DealStore {
		Absorb(store, rec)
		return store
	}, DealStore{})
}

// Finalize returns the store's offers sorted by name
func Finalize(store DealStore) []ItemRecord {
	return sortByName(lo.Values(map[string]ItemRecord(store)))
}

// DealAggregator is a DealStore safe for concurrent producers
type DealAggregator struct {
	mu    sync.Mutex
	store DealStore
}

// NewDealAggregator creates an empty aggregator
func NewDealAggregator() *DealAggregator {
	return &DealAggregator{store: DealStore{}}
}

// Add absorbs records into the aggregator
func (a *DealAggregator) Add(records ...ItemRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, rec := range records {
		Absorb(a.store, rec)
	}
}

// Len returns the number of distinct names seen
func (a *DealAggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.store)
}

// Finalize returns the aggregated offers sorted by name
func (a *DealAggregator) Finalize() []ItemRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Finalize(a.store)
}
