// Package store persists address book entries. It ships two implementations
// sharing one interface: Postgres for production and an in-memory twin for
// unit tests.
//
// Methods documented as locking acquire FOR UPDATE row locks and must run
// inside a transaction scope opened through tx.Runner; the lock is held
// until commit or rollback. The in-memory implementation relies on the
// MemoryRunner's coarse lock for the same serialization.
package store

import (
	"context"

	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/models"
	"github.com/infinex-exchange/wallet.addressbook/pkg/pagination"
)

// Store is the persistence contract owned by the record service.
type Store interface {
	// Insert persists a new entry and returns the assigned id. Returns
	// sentinel.ErrConflict if a storage-level uniqueness constraint fires,
	// the safety net beneath the application-level lock-and-check.
	Insert(ctx context.Context, e *models.AddressBookEntry) (int64, error)

	// FindByID returns the entry or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id int64) (*models.AddressBookEntry, error)

	// List returns entries matching the filter in ascending id order,
	// bounded by the window, plus a flag reporting whether rows exist
	// beyond the page.
	List(ctx context.Context, f models.Filter, w pagination.Window) ([]*models.AddressBookEntry, bool, error)

	// FindConflicts locks and returns any entry for (ownerID, networkID)
	// that collides with the proposed name or (address, memo) pair. A name
	// collision wins when both exist. Returns sentinel.ErrNotFound when the
	// key space is free. Locking; call inside a transaction.
	FindConflicts(ctx context.Context, ownerID int64, networkID, name, address string, memo *string) (*models.AddressBookEntry, error)

	// FindByIDForUpdate locks and returns the entry by primary key, or
	// sentinel.ErrNotFound. Locking; call inside a transaction.
	FindByIDForUpdate(ctx context.Context, id int64) (*models.AddressBookEntry, error)

	// NameTaken locks and reports whether another entry (excludeID aside)
	// in the same (ownerID, networkID) already uses name. Locking; call
	// inside a transaction.
	NameTaken(ctx context.Context, ownerID int64, networkID, name string, excludeID int64) (bool, error)

	// UpdateName renames the entry, returning sentinel.ErrNotFound if no
	// row was affected.
	UpdateName(ctx context.Context, id int64, name string) error

	// Delete removes the entry, returning sentinel.ErrNotFound if no row
	// was affected.
	Delete(ctx context.Context, id int64) error
}
