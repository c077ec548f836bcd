package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-payment-ledger/internal/domain/order"
	"github.com/retail-payment-ledger/internal/domain/shared"
	"github.com/retail-payment-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, kind, counterpart_id, counterpart_name, product_id, product_name,
		warehouse_id, quantity, total::text, created_at, updated_at`

// OrderRepository implements order.Repository on the orders and order_payments tables.
// An order and its payments are always written in one transaction.
type OrderRepository struct {
	db     persistence.TxBeginner
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) order.Repository {
	return &OrderRepository{
		db:     db.Pool(),
		logger: logger,
		now:    time.Now,
	}
}

// Create inserts the order and its payments and assigns ID, OrderNumber and timestamps
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	var (
		id                   uuid.UUID
		number               string
		createdAt, updatedAt time.Time
	)

	err := persistence.ExecuteTx(ctx, r.db, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}
		number = order.FormatNumber(o.Kind, r.now().UTC(), seq)

		query := `
			INSERT INTO orders (order_number, kind, counterpart_id, counterpart_name, product_id, product_name,
				warehouse_id, quantity, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			number,
			o.Kind,
			o.CounterpartID,
			o.CounterpartName,
			o.ProductID,
			o.ProductName,
			o.WarehouseID,
			o.Quantity,
			o.Total,
		).Scan(&id, &createdAt, &updatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		return insertPayments(ctx, tx, id, o.Payments)
	})
	if err != nil {
		r.logger.Error("Failed to create order", "kind", string(o.Kind), "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	o.ID = id
	o.OrderNumber = number
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	return nil
}

// Update replaces the mutable fields and the payments of an existing order.
// Returns ErrOrderNotFound if the order doesn't exist.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	updatedAt := r.now().UTC()

	err := persistence.ExecuteTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			UPDATE orders
			SET counterpart_id = $2, counterpart_name = $3, product_id = $4, product_name = $5,
				warehouse_id = $6, quantity = $7, total = $8, updated_at = $9
			WHERE id = $1
		`
		result, err := tx.Exec(ctx, query,
			o.ID,
			o.CounterpartID,
			o.CounterpartName,
			o.ProductID,
			o.ProductName,
			o.WarehouseID,
			o.Quantity,
			o.Total,
			updatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if result.RowsAffected() == 0 {
			return order.ErrOrderNotFound{ID: o.ID}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM order_payments WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("failed to clear order payments: %w", err)
		}
		return insertPayments(ctx, tx, o.ID, o.Payments)
	})
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound{}) {
			return err
		}
		r.logger.Error("Failed to update order",
			"order_id", o.ID.String(),
			"order_number", o.OrderNumber,
			"error", err,
		)
		return fmt.Errorf("failed to update order: %w", err)
	}

	o.UpdatedAt = updatedAt
	return nil
}

// Delete removes the order; payments go with it through the foreign key cascade
func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete order", "order_id", id.String(), "error", err)
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return order.ErrOrderNotFound{ID: id}
	}
	return nil
}

// GetByID retrieves an order with its payments.
// Returns ErrOrderNotFound if no order exists for the given id.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := r.getOne(ctx, query, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrOrderNotFound{ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to get order", "order_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// GetByOrderNumber retrieves an order by its business number
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	o, err := r.getOne(ctx, query, orderNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrOrderNotFound{OrderNumber: orderNumber}
	}
	if err != nil {
		r.logger.Error("Failed to get order by number", "order_number", orderNumber, "error", err)
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}
	return o, nil
}

// List returns a page of orders of one kind, newest first
func (r *OrderRepository) List(ctx context.Context, kind shared.OrderKind, limit, offset int) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE kind = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, kind, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders", "kind", string(kind), "error", err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []*order.Order
		ids    []uuid.UUID
	)
	byID := make(map[uuid.UUID]*order.Order)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	paymentRows, err := r.db.Query(ctx, `
		SELECT order_id, amount::text, payment_type, account_number, note, paid_at
		FROM order_payments
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list order payments: %w", err)
	}
	defer paymentRows.Close()

	for paymentRows.Next() {
		orderID, p, err := scanPayment(paymentRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order payment: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Payments = append(o.Payments, p)
		}
	}
	if err := paymentRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over order payments: %w", err)
	}

	return orders, nil
}

// Count returns the number of orders of one kind
func (r *OrderRepository) Count(ctx context.Context, kind shared.OrderKind) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE kind = $1`, kind).Scan(&count); err != nil {
		r.logger.Error("Failed to count orders", "kind", string(kind), "error", err)
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg interface{}) (*order.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT order_id, amount::text, payment_type, account_number, note, paid_at
		FROM order_payments
		WHERE order_id = $1
		ORDER BY position`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		_, p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		o.Payments = append(o.Payments, p)
	}
	return o, rows.Err()
}

func insertPayments(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, payments []order.Payment) error {
	query := `
		INSERT INTO order_payments (order_id, position, amount, payment_type, account_number, note, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, p := range payments {
		if _, err := tx.Exec(ctx, query, orderID, i, p.Amount, p.PaymentType, p.AccountNumber, p.Note, p.Date); err != nil {
			return fmt.Errorf("failed to insert payment %d: %w", i, err)
		}
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o     order.Order
		total string
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.Kind,
		&o.CounterpartID,
		&o.CounterpartName,
		&o.ProductID,
		&o.ProductName,
		&o.WarehouseID,
		&o.Quantity,
		&total,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid order total %q: %w", total, err)
	}
	return &o, nil
}

func scanPayment(row pgx.Row) (uuid.UUID, order.Payment, error) {
	var (
		orderID uuid.UUID
		p       order.Payment
		amount  string
	)
	if err := row.Scan(&orderID, &amount, &p.PaymentType, &p.AccountNumber, &p.Note, &p.Date); err != nil {
		return uuid.Nil, p, err
	}
	var err error
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return uuid.Nil, p, fmt.Errorf("invalid payment amount %q: %w", amount, err)
	}
	p.Date = order.PaymentDate(p.Date)
	return orderID, p, nil
}
