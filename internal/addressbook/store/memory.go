package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/models"
	"github.com/infinex-exchange/wallet.addressbook/pkg/pagination"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/sentinel"
)

// InMemory is the in-memory twin of the Postgres store, used by unit tests
// and local development. Pair it with tx.NewMemoryRunner so the
// lock-then-check-then-write sequence stays atomic: the runner's coarse lock
// plays the role of the FOR UPDATE row locks.
type InMemory struct {
	mu      sync.RWMutex
	entries map[int64]*models.AddressBookEntry
	nextID  int64
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[int64]*models.AddressBookEntry)}
}

func (s *InMemory) Insert(_ context.Context, e *models.AddressBookEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirror the storage-level unique indexes so the safety net behaves the
	// same as in Postgres.
	for _, existing := range s.entries {
		if existing.OwnerID != e.OwnerID || existing.NetworkID != e.NetworkID {
			continue
		}
		if existing.Name == e.Name {
			return 0, fmt.Errorf("insert entry: %w", sentinel.ErrConflict)
		}
		if existing.Address == e.Address && models.MemoEqual(existing.Memo, e.Memo) {
			return 0, fmt.Errorf("insert entry: %w", sentinel.ErrConflict)
		}
	}

	// Ids are assigned once, monotonically increasing, never reused.
	s.nextID++
	stored := e.Clone()
	stored.ID = s.nextID
	s.entries[stored.ID] = stored
	return stored.ID, nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*models.AddressBookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *InMemory) List(_ context.Context, f models.Filter, w pagination.Window) ([]*models.AddressBookEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.AddressBookEntry
	for _, e := range s.entries {
		if f.OwnerID != nil && e.OwnerID != *f.OwnerID {
			continue
		}
		if f.NetworkID != nil && e.NetworkID != *f.NetworkID {
			continue
		}
		if f.Search != "" && !searchMatches(e, f.Search) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if w.Offset >= len(matched) {
		return nil, false, nil
	}
	matched = matched[w.Offset:]

	more := len(matched) > w.Limit
	if more {
		matched = matched[:w.Limit]
	}

	out := make([]*models.AddressBookEntry, len(matched))
	for i, e := range matched {
		out[i] = e.Clone()
	}
	return out, more, nil
}

func (s *InMemory) FindConflicts(_ context.Context, ownerID int64, networkID, name, address string, memo *string) (*models.AddressBookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var conflict *models.AddressBookEntry
	for _, e := range s.entries {
		if e.OwnerID != ownerID || e.NetworkID != networkID {
			continue
		}
		if e.Name == name {
			return e.Clone(), nil
		}
		if e.Address == address && models.MemoEqual(e.Memo, memo) {
			conflict = e
		}
	}
	if conflict == nil {
		return nil, sentinel.ErrNotFound
	}
	return conflict.Clone(), nil
}

func (s *InMemory) FindByIDForUpdate(ctx context.Context, id int64) (*models.AddressBookEntry, error) {
	return s.FindByID(ctx, id)
}

func (s *InMemory) NameTaken(_ context.Context, ownerID int64, networkID, name string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == excludeID {
			continue
		}
		if e.OwnerID == ownerID && e.NetworkID == networkID && e.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) UpdateName(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Name = name
	return nil
}

func (s *InMemory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func searchMatches(e *models.AddressBookEntry, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(e.Name), needle) ||
		strings.Contains(strings.ToLower(e.Address), needle)
}
