package mongo

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/retail-payment-ledger/internal/config"
	"github.com/retail-payment-ledger/internal/domain/ledger"
)

// NewLedgerSet opens the three ledger collections and makes sure their indexes exist
func NewLedgerSet(ctx context.Context, logger *slog.Logger, db *mongo.Database, cfg *config.MongoDBConfig) (ledger.Set, error) {
	repos := []*LedgerRepository{
		NewLedgerRepository(logger, db, ledger.KindCashInHand, cfg.CashInHandColl),
		NewLedgerRepository(logger, db, ledger.KindCashInBank, cfg.CashInBankColl),
		NewLedgerRepository(logger, db, ledger.KindCashInCheque, cfg.CashInChequeColl),
	}

	set := make([]ledger.Repository, 0, len(repos))
	for _, r := range repos {
		if err := r.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		set = append(set, r)
	}
	return ledger.NewSet(set...)
}
