// Package models defines the address book entry and the value objects shared
// by the store, service and facades.
package models

import (
	"regexp"

	dErrors "github.com/infinex-exchange/wallet.addressbook/pkg/domain-errors"
)

// namePattern is the only accepted shape for display names.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9 ]{1,255}$`)

// AddressBookEntry is one stored withdrawal destination owned by a user.
// Every field except Name is immutable after creation; edits rename only.
type AddressBookEntry struct {
	ID        int64
	OwnerID   int64
	NetworkID string
	Address   string
	Name      string
	// Memo is the optional destination memo/tag. nil means "no memo" and is
	// distinct from an empty string for uniqueness purposes.
	Memo *string
}

// Clone returns a copy of the entry so in-memory store reads cannot alias
// internal state.
func (e *AddressBookEntry) Clone() *AddressBookEntry {
	c := *e
	if e.Memo != nil {
		m := *e.Memo
		c.Memo = &m
	}
	return &c
}

// MemoEqual compares two optional memos with NULL-aware semantics: two nil
// memos are equal, nil never equals a set memo (including the empty string).
func MemoEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Filter narrows a listing query. Nil fields are ignored; Search matches as
// a substring over the name and address columns.
type Filter struct {
	OwnerID   *int64
	NetworkID *string
	Search    string
}

// ValidateName checks a display name against the accepted pattern.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return dErrors.New(dErrors.CodeValidation, "name")
	}
	return nil
}

// ValidateID checks an entry id supplied by a caller. Server-assigned ids
// are positive, so anything else can be rejected before touching the store.
func ValidateID(id int64) error {
	if id < 1 {
		return dErrors.New(dErrors.CodeValidation, "adbkid")
	}
	return nil
}
