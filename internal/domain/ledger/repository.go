package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Repository manages the entries of a single ledger.
// Create assigns the entry ID; Update replaces an entry in place by ID.
type Repository interface {
	Kind() Kind
	Create(ctx context.Context, entry *Entry) error
	Update(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByOrderNumber(ctx context.Context, orderNumber string) ([]*Entry, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, error)
	Count(ctx context.Context) (int64, error)
}

// Set holds exactly one repository per ledger kind
type Set map[Kind]Repository

// NewSet indexes the repositories by kind and checks that every ledger is present once
func NewSet(repos ...Repository) (Set, error) {
	set := make(Set, len(SearchOrder))
	for _, r := range repos {
		if _, dup := set[r.Kind()]; dup {
			return nil, fmt.Errorf("ledger %s configured twice", r.Kind())
		}
		set[r.Kind()] = r
	}
	for _, k := range SearchOrder {
		if _, ok := set[k]; !ok {
			return nil, fmt.Errorf("ledger %s is not configured", k)
		}
	}
	return set, nil
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	ID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target ID is empty, consider it a match for any ErrEntryNotFound
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateEntry indicates a second entry for the same order in one ledger
type ErrDuplicateEntry struct {
	OrderNumber string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry for order: " + e.OrderNumber
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.OrderNumber == "" {
		return true
	}
	return e.OrderNumber == t.OrderNumber
}
