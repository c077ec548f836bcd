package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-payment-ledger/internal/domain/ledger"
	"github.com/retail-payment-ledger/internal/domain/shared"
)

// LedgerRepository implements ledger.Repository on one MongoDB collection.
// Each of the three ledgers gets its own repository and collection.
type LedgerRepository struct {
	kind       ledger.Kind
	collection *mongo.Collection
	logger     *slog.Logger
	now        func() time.Time
}

var _ ledger.Repository = (*LedgerRepository)(nil)

// NewLedgerRepository creates the repository for one ledger kind
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database, kind ledger.Kind, collectionName string) *LedgerRepository {
	return &LedgerRepository{
		kind:       kind,
		collection: db.Collection(collectionName),
		logger:     logger.With("ledger", string(kind)),
		now:        time.Now,
	}
}

// entryDocument is the stored shape of a ledger entry. Money is kept as Decimal128.
type entryDocument struct {
	ID              string               `bson:"_id"`
	OrderNumber     string               `bson:"order_id"`
	Source          string               `bson:"source"`
	CounterpartName string               `bson:"counterpart_name"`
	ProductName     string               `bson:"product_name"`
	Quantity        int                  `bson:"quantity"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount"`
	AmountPaid      primitive.Decimal128 `bson:"amount_paid"`
	Balance         primitive.Decimal128 `bson:"balance"`
	PaymentType     string               `bson:"payment_type"`
	AccountNumber   string               `bson:"account_number,omitempty"`
	Note            string               `bson:"note,omitempty"`
	Date            time.Time            `bson:"date"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func (r *LedgerRepository) Kind() ledger.Kind {
	return r.kind
}

// EnsureIndexes creates the unique order_id index used by FindByOrderNumber.
// Uniqueness is per collection; duplicates across ledgers are caught by the engine.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("order_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create order_id index on %s: %w", r.collection.Name(), err)
	}
	return nil
}

// Create stores a new entry and assigns its ID.
// Returns ErrDuplicateEntry if this ledger already holds an entry for the order.
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	id := uuid.New()
	now := r.now().UTC()

	doc, err := toDocument(entry)
	if err != nil {
		return err
	}
	doc.ID = id.String()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ledger.ErrDuplicateEntry{OrderNumber: entry.OrderNumber}
		}
		r.logger.Error("Failed to create ledger entry",
			"order_number", entry.OrderNumber,
			"error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	entry.ID = id
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return nil
}

// Update replaces the snapshot fields of an entry, keeping its ID and creation time.
// Returns ErrEntryNotFound if the entry doesn't exist.
func (r *LedgerRepository) Update(ctx context.Context, entry *ledger.Entry) error {
	doc, err := toDocument(entry)
	if err != nil {
		return err
	}
	now := r.now().UTC()

	update := bson.M{
		"$set": bson.M{
			"source":           doc.Source,
			"counterpart_name": doc.CounterpartName,
			"product_name":     doc.ProductName,
			"quantity":         doc.Quantity,
			"total_amount":     doc.TotalAmount,
			"amount_paid":      doc.AmountPaid,
			"balance":          doc.Balance,
			"payment_type":     doc.PaymentType,
			"account_number":   doc.AccountNumber,
			"note":             doc.Note,
			"date":             doc.Date,
			"updated_at":       now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": entry.ID.String()}, update)
	if err != nil {
		r.logger.Error("Failed to update ledger entry",
			"entry_id", entry.ID.String(),
			"order_number", entry.OrderNumber,
			"error", err)
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	if result.MatchedCount == 0 {
		return ledger.ErrEntryNotFound{ID: entry.ID}
	}

	entry.UpdatedAt = now
	return nil
}

// Delete removes an entry by ID.
// Returns ErrEntryNotFound if the entry doesn't exist.
func (r *LedgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		r.logger.Error("Failed to delete ledger entry",
			"entry_id", id.String(),
			"error", err)
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	if result.DeletedCount == 0 {
		return ledger.ErrEntryNotFound{ID: id}
	}
	return nil
}

// FindByOrderNumber returns every entry in this ledger recorded for the order
func (r *LedgerRepository) FindByOrderNumber(ctx context.Context, orderNumber string) ([]*ledger.Entry, error) {
	entries, err := r.find(ctx, bson.M{"order_id": orderNumber}, options.Find())
	if err != nil {
		r.logger.Error("Failed to find ledger entries",
			"order_number", orderNumber,
			"error", err)
		return nil, fmt.Errorf("failed to find ledger entries: %w", err)
	}
	return entries, nil
}

// List returns a page of entries sorted by payment date, newest first
func (r *LedgerRepository) List(ctx context.Context, limit, offset int) ([]*ledger.Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	entries, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// Count counts the entries in this ledger
func (r *LedgerRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

func (r *LedgerRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*ledger.Entry, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	entries := make([]*ledger.Entry, 0, len(docs))
	for _, doc := range docs {
		entry, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toDocument(e *ledger.Entry) (entryDocument, error) {
	doc := entryDocument{
		ID:              e.ID.String(),
		OrderNumber:     e.OrderNumber,
		Source:          string(e.Source),
		CounterpartName: e.CounterpartName,
		ProductName:     e.ProductName,
		Quantity:        e.Quantity,
		PaymentType:     string(e.PaymentType),
		AccountNumber:   e.AccountNumber,
		Note:            e.Note,
		Date:            e.Date,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}

	var err error
	if doc.TotalAmount, err = toDecimal128(e.TotalAmount); err != nil {
		return doc, err
	}
	if doc.AmountPaid, err = toDecimal128(e.AmountPaid); err != nil {
		return doc, err
	}
	if doc.Balance, err = toDecimal128(e.Balance); err != nil {
		return doc, err
	}
	return doc, nil
}

func fromDocument(doc entryDocument) (*ledger.Entry, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger entry id %q: %w", doc.ID, err)
	}

	e := &ledger.Entry{
		ID:              id,
		OrderNumber:     doc.OrderNumber,
		Source:          shared.OrderKind(doc.Source),
		CounterpartName: doc.CounterpartName,
		ProductName:     doc.ProductName,
		Quantity:        doc.Quantity,
		PaymentType:     shared.PaymentType(doc.PaymentType),
		AccountNumber:   doc.AccountNumber,
		Note:            doc.Note,
		Date:            doc.Date,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}

	if e.TotalAmount, err = fromDecimal128(doc.TotalAmount); err != nil {
		return nil, err
	}
	if e.AmountPaid, err = fromDecimal128(doc.AmountPaid); err != nil {
		return nil, err
	}
	if e.Balance, err = fromDecimal128(doc.Balance); err != nil {
		return nil, err
	}
	return e, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("amount %s does not fit Decimal128: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid stored amount %s: %w", v.String(), err)
	}
	return d, nil
}
