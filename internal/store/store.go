package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/bajo3/Meli-test/internal/models"
)

// TierFilter narrows listings by tier family.
type TierFilter string

const (
	TierFilterAll    TierFilter = "all"
	TierFilterSilver TierFilter = "silver"
	TierFilterGold   TierFilter = "gold"
)

// SortOrder orders listings by creation date.
type SortOrder string

const (
	SortNewestFirst SortOrder = "date-desc"
	SortOldestFirst SortOrder = "date-asc"
)

// ListingStore holds the current working set of listings keyed by id. It is
// populated from remote fetches and mutated by the results of writes; nothing
// is persisted.
type ListingStore struct {
	mu    sync.RWMutex
	items map[string]models.Listing
}

func NewListingStore() *ListingStore {
	return &ListingStore{
		items: make(map[string]models.Listing),
	}
}

// ReplaceAll swaps in a freshly fetched working set.
func (s *ListingStore) ReplaceAll(listings []models.Listing) {
	next := make(map[string]models.Listing, len(listings))
	for _, l := range listings {
		next[l.ID] = l
	}

	s.mu.Lock()
	s.items = next
	s.mu.Unlock()
}

// Upsert inserts or overwrites one listing.
func (s *ListingStore) Upsert(l models.Listing) {
	if l.ID == "" {
		return
	}
	s.mu.Lock()
	s.items[l.ID] = l
	s.mu.Unlock()
}

// Remove drops a listing from the working set.
func (s *ListingStore) Remove(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Get returns the listing for id, if known.
func (s *ListingStore) Get(id string) (models.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.items[id]
	return l, ok
}

// SetPrice patches the stored price for id, reporting whether it was known.
func (s *ListingStore) SetPrice(id string, price float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.items[id]
	if !ok {
		return false
	}
	l.Price = price
	s.items[id] = l
	return true
}

// All returns a copy of the working set in unspecified order.
func (s *ListingStore) All() []models.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Listing, 0, len(s.items))
	for _, l := range s.items {
		out = append(out, l)
	}
	return out
}

// Len returns the size of the working set.
func (s *ListingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// ApplyFilters is a pure projection of items through search, tier filter and
// sort order. Search matches case-insensitively against title or id; the tier
// filter follows the tier-family rule (silver exact, gold by prefix); sorting
// is by creation date with missing timestamps treated as time zero.
func ApplyFilters(items []models.Listing, search string, tier TierFilter, order SortOrder) []models.Listing {
	term := strings.ToLower(strings.TrimSpace(search))

	out := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if term != "" &&
			!strings.Contains(strings.ToLower(item.Title), term) &&
			!strings.Contains(strings.ToLower(item.ID), term) {
			continue
		}

		switch tier {
		case TierFilterSilver:
			if item.ListingTypeID != models.TierSilver {
				continue
			}
		case TierFilterGold:
			if !models.IsGoldTier(item.ListingTypeID) {
				continue
			}
		}

		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == SortOldestFirst {
			return out[i].DateCreated.Before(out[j].DateCreated)
		}
		return out[j].DateCreated.Before(out[i].DateCreated)
	})

	return out
}
