package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, total, status, payment_intent_id)
	VALUES ($1, $2, $3, NULLIF($4, '')) RETURNING id, created_at`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price)
	VALUES ($1, $2, $3, $4) RETURNING id`

	orderColumns = `id, user_id, total, status, COALESCE(payment_intent_id, ''), created_at`

	listOrdersByUserSQL = `SELECT ` + orderColumns + `
	FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	getOrderByPaymentIntentSQL = `SELECT ` + orderColumns + `
	FROM orders WHERE payment_intent_id = $1`

	// Display fields are joined live; money fields come from order_items.
	listOrderItemsSQL = `SELECT oi.order_id, oi.id, oi.product_id, oi.quantity, oi.price,
		COALESCE(p.name, ''), COALESCE(p.images[1], '')
	FROM order_items oi
	LEFT JOIN products p ON p.id = oi.product_id
	WHERE oi.order_id = ANY($1)
	ORDER BY oi.order_id, oi.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order row and every line in a single transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, createOrderSQL,
			o.UserID, o.Total, string(o.Status), o.PaymentIntentID,
		).Scan(&o.ID, &o.CreatedAt); err != nil {
			return err
		}
		for i := range o.Lines {
			l := &o.Lines[i]
			if err := tx.QueryRow(ctx, createOrderItemSQL,
				o.ID, l.ProductID, l.Quantity, l.Price,
			).Scan(&l.ID); err != nil {
				return fmt.Errorf("line %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		o.ID = 0
		if isUniqueViolation(err, "orders_payment_intent_id_key") {
			return order.ErrDuplicatePayment
		}
		return fmt.Errorf("creating order: %w", err)
	}
	return nil
}

// FindByPaymentIntent returns the order recorded for intentID.
func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByPaymentIntentSQL, intentID)
	if err != nil {
		return nil, fmt.Errorf("finding order by payment intent: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order by payment intent: %w", err)
	}

	orders := []order.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders newest first with their lines.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			l       order.Line
			qty     int32
		)
		if err := rows.Scan(&orderID, &l.ID, &l.ProductID, &qty, &l.Price, &l.ProductName, &l.ProductImage); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		l.Quantity = int(qty)
		i := index[orderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Total, &status, &o.PaymentIntentID, &o.CreatedAt)
	o.Status = order.Status(status)
	return o, err
}
