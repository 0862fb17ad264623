// Package catalog stores reference chemistry for elements: how each reacts
// with heavy metals and with the environment, and which compounds it forms.
// Entries are keyed by their display name, e.g. "Arsenic (As)".
package catalog

import (
	"context"
	"slices"
	"time"
)

// Element is one catalog entry.
type Element struct {
	ID                       string    `json:"id"`
	Element                  string    `json:"element" validate:"required,max=128"`
	ReactionsWithHeavyMetals []string  `json:"reactions_with_heavy_metals" validate:"required,dive,required,max=512"`
	ReactionsWithEnvironment []string  `json:"reactions_with_environment" validate:"required,dive,required,max=512"`
	CompoundsFound           []string  `json:"compounds_found" validate:"required,dive,required,max=256"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	c := *e
	c.ReactionsWithHeavyMetals = slices.Clone(e.ReactionsWithHeavyMetals)
	c.ReactionsWithEnvironment = slices.Clone(e.ReactionsWithEnvironment)
	c.CompoundsFound = slices.Clone(e.CompoundsFound)
	return &c
}

// Update is a partial modification. Nil fields are left unchanged.
type Update struct {
	Element                  *string  `json:"element,omitempty" validate:"omitempty,min=1,max=128"`
	ReactionsWithHeavyMetals []string `json:"reactions_with_heavy_metals,omitempty" validate:"omitempty,dive,required,max=512"`
	ReactionsWithEnvironment []string `json:"reactions_with_environment,omitempty" validate:"omitempty,dive,required,max=512"`
	CompoundsFound           []string `json:"compounds_found,omitempty" validate:"omitempty,dive,required,max=256"`
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return u.Element == nil &&
		u.ReactionsWithHeavyMetals == nil &&
		u.ReactionsWithEnvironment == nil &&
		u.CompoundsFound == nil
}

// Apply writes the set fields of u into e and reports whether any value
// actually changed.
func (u Update) Apply(e *Element) bool {
	changed := false
	if u.Element != nil && *u.Element != e.Element {
		e.Element = *u.Element
		changed = true
	}
	if u.ReactionsWithHeavyMetals != nil && !slices.Equal(u.ReactionsWithHeavyMetals, e.ReactionsWithHeavyMetals) {
		e.ReactionsWithHeavyMetals = slices.Clone(u.ReactionsWithHeavyMetals)
		changed = true
	}
	if u.ReactionsWithEnvironment != nil && !slices.Equal(u.ReactionsWithEnvironment, e.ReactionsWithEnvironment) {
		e.ReactionsWithEnvironment = slices.Clone(u.ReactionsWithEnvironment)
		changed = true
	}
	if u.CompoundsFound != nil && !slices.Equal(u.CompoundsFound, e.CompoundsFound) {
		e.CompoundsFound = slices.Clone(u.CompoundsFound)
		changed = true
	}
	return changed
}

// Storage persists catalog entries. Implementations must be safe for
// concurrent use and must return copies the caller may modify.
type Storage interface {
	// Create stores a new entry. It fails with ErrAlreadyExists when the
	// name is taken. ID and timestamps are assigned when empty.
	Create(ctx context.Context, e *Element) (*Element, error)

	// Get returns the entry with the given name or ErrNotFound.
	Get(ctx context.Context, name string) (*Element, error)

	// List returns every entry ordered by name.
	List(ctx context.Context) ([]*Element, error)

	// Update applies u to the named entry. An update that changes nothing
	// returns the stored entry unmodified.
	Update(ctx context.Context, name string, u Update) (*Element, error)

	// Delete removes the named entry or returns ErrNotFound.
	Delete(ctx context.Context, name string) error

	// Close releases resources held by the backend.
	Close() error
}
