package summary

import (
	"context"
)

// Repository persists payable/receivable summaries
type Repository interface {
	Create(ctx context.Context, s *Summary) error
	Update(ctx context.Context, s *Summary) error
	GetByKey(ctx context.Context, key Key) (*Summary, error)
}

// ErrSummaryNotFound indicates no summary exists for the key
type ErrSummaryNotFound struct {
	Key Key
}

func (e ErrSummaryNotFound) Error() string {
	return "summary not found for order: " + e.Key.OrderNumber
}

// Is implements the errors.Is interface for ErrSummaryNotFound
func (e ErrSummaryNotFound) Is(target error) bool {
	t, ok := target.(ErrSummaryNotFound)
	if !ok {
		return false
	}
	return t.Key == (Key{}) || t.Key == e.Key
}
