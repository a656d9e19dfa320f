// Package memory is an in-process catalog and location store, used for local
// development and as the reference backend in tests.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
)

// Store keeps catalog entries and location groups in memory.
// Thread-safe via sync.RWMutex.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]domain.CatalogEntry
	groups   map[string]domain.LocationGroup
	pincodes map[pincodeKey]string
}

type pincodeKey struct{ storeID, pincode string }

// New creates an empty store.
func New() *Store {
	return &Store{
		entries:  make(map[string]domain.CatalogEntry),
		groups:   make(map[string]domain.LocationGroup),
		pincodes: make(map[pincodeKey]string),
	}
}

// Seed is the JSON fixture format accepted by LoadSeed.
type Seed struct {
	LocationGroups []domain.LocationGroup `json:"location_groups"`
	Catalog        []domain.CatalogEntry  `json:"catalog"`
}

// LoadSeed reads a JSON Seed into the store.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for _, g := range seed.LocationGroups {
		if err := s.PutGroup(g); err != nil {
			return err
		}
	}
	return s.Index(context.Background(), seed.Catalog)
}

// Index adds or replaces entries.
func (s *Store) Index(_ context.Context, entries []domain.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.entries[e.Product.ID] = cloneEntry(e)
	}
	return nil
}

// Delete removes a product. Deleting an unknown product is not an error.
func (s *Store) Delete(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, productID)
	return nil
}

// Find evaluates the predicate over every entry.
func (s *Store) Find(_ context.Context, params repository.FindParams) ([]domain.CatalogEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.CatalogEntry, 0)
	for _, e := range s.entries {
		if query.Match(params.Predicate, &e) {
			matched = append(matched, e)
		}
	}
	slices.SortFunc(matched, compareFor(params.Sort))

	total := len(matched)
	start := min(max(params.Offset, 0), total)
	end := total
	if params.Limit > 0 {
		end = min(start+params.Limit, total)
	}

	out := make([]domain.CatalogEntry, 0, end-start)
	for _, e := range matched[start:end] {
		out = append(out, cloneEntry(e))
	}
	return out, total, nil
}

func compareFor(sort domain.SortBy) func(a, b domain.CatalogEntry) int {
	if sort == domain.SortNameAsc {
		return func(a, b domain.CatalogEntry) int {
			return cmp.Or(cmp.Compare(a.Product.Name, b.Product.Name), cmp.Compare(a.Product.ID, b.Product.ID))
		}
	}
	return func(a, b domain.CatalogEntry) int {
		return cmp.Or(b.Product.CreatedAt.Compare(a.Product.CreatedAt), cmp.Compare(a.Product.ID, b.Product.ID))
	}
}

// PutGroup adds or replaces a location group and its pincodes. A pincode
// already served by another group of the same store, or a second default
// group, is rejected.
func (s *Store) PutGroup(g domain.LocationGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.IsDefault {
		for _, other := range s.groups {
			if other.StoreID == g.StoreID && other.IsDefault && other.ID != g.ID {
				return fmt.Errorf("store %s already has default group %s", g.StoreID, other.ID)
			}
		}
	}

	for _, pin := range g.Pincodes {
		if owner, ok := s.pincodes[pincodeKey{g.StoreID, pin}]; ok && owner != g.ID {
			return fmt.Errorf("pincode %s already served by group %s", pin, owner)
		}
	}
	if old, ok := s.groups[g.ID]; ok {
		for _, pin := range old.Pincodes {
			delete(s.pincodes, pincodeKey{old.StoreID, pin})
		}
	}

	g.Pincodes = slices.Clone(g.Pincodes)
	s.groups[g.ID] = g
	for _, pin := range g.Pincodes {
		s.pincodes[pincodeKey{g.StoreID, pin}] = g.ID
	}
	return nil
}

// LookupPincode implements location.Lookup.
func (s *Store) LookupPincode(_ context.Context, storeID, pincode string) (*domain.LocationGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pincodes[pincodeKey{storeID, pincode}]
	if !ok {
		return nil, domain.ErrPincodeNotFound
	}
	g := s.groups[id]
	return &g, nil
}

// DefaultGroup implements location.Lookup.
func (s *Store) DefaultGroup(_ context.Context, storeID string) (*domain.LocationGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.StoreID == storeID && g.IsDefault {
			return &g, nil
		}
	}
	return nil, domain.ErrNoDefaultGroup
}

// GetGroup implements location.Lookup.
func (s *Store) GetGroup(_ context.Context, storeID, groupID string) (*domain.LocationGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok || g.StoreID != storeID {
		return nil, domain.ErrLocationGroupNotFound
	}
	return &g, nil
}

func cloneEntry(e domain.CatalogEntry) domain.CatalogEntry {
	variants := make([]domain.Variant, len(e.Variants))
	for i, v := range e.Variants {
		v.Prices = slices.Clone(v.Prices)
		v.Images = slices.Clone(v.Images)
		variants[i] = v
	}
	e.Variants = variants
	return e
}
