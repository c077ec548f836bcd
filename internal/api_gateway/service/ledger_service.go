package service

import (
	"context"
	"fmt"

	"github.com/retail-payment-ledger/internal/domain/ledger"
)

// LedgerServiceImpl implements the LedgerService interface over the ledger set
type LedgerServiceImpl struct {
	ledgers ledger.Set
}

// NewLedgerService creates a new ledger service
func NewLedgerService(ledgers ledger.Set) LedgerService {
	return &LedgerServiceImpl{ledgers: ledgers}
}

func (s *LedgerServiceImpl) ListEntries(ctx context.Context, kind ledger.Kind, page, perPage int) ([]*ledger.Entry, int64, error) {
	repo, ok := s.ledgers[kind]
	if !ok {
		return nil, 0, fmt.Errorf("ledger %s is not configured", kind)
	}

	offset := (page - 1) * perPage
	entries, err := repo.List(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
