package postgres

import (
	"context"
	"encoding/json"

	"github.com/cartline/cartline/internal/domain/order"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrdersRepo struct {
	pool    *pgxpool.Pool
	metrics dbObserver
}

func NewOrdersRepo(pool *pgxpool.Pool) *OrdersRepo {
	return &OrdersRepo{pool: pool}
}

func (r *OrdersRepo) WithMetrics(obs dbObserver) *OrdersRepo {
	r.metrics = obs
	return r
}

// Create persists an order. Line items are stored as a JSONB snapshot,
// they reference no catalog rows.
func (r *OrdersRepo) Create(ctx context.Context, o order.Order) (order.Order, error) {
	items, err := json.Marshal(o.Items)

	if err != nil {
		return order.Order{}, err
	}

	err = observe(r.metrics, "orders_insert", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO orders (id, user_id, items, total_amount, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			o.ID, o.UserID, items, o.TotalAmount, o.CreatedAt,
		)
		return err
	})

	if err != nil {
		return order.Order{}, err
	}

	return o, nil
}

func (r *OrdersRepo) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	var out []order.Order

	err := observe(r.metrics, "orders_list_by_user", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, items, total_amount, created_at
			 FROM orders
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC`,
			userID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out, err = scanOrders(rows)
		return err
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *OrdersRepo) ListAll(ctx context.Context) ([]order.Order, error) {
	var out []order.Order

	err := observe(r.metrics, "orders_list_all", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, items, total_amount, created_at
			 FROM orders
			 ORDER BY created_at DESC, id DESC`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out, err = scanOrders(rows)
		return err
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanOrders(rows pgxRows) ([]order.Order, error) {
	out := make([]order.Order, 0)

	for rows.Next() {
		var o order.Order
		var items []byte

		err := rows.Scan(&o.ID, &o.UserID, &items, &o.TotalAmount, &o.CreatedAt)

		if err != nil {
			return nil, err
		}

		err = json.Unmarshal(items, &o.Items)

		if err != nil {
			return nil, err
		}

		out = append(out, o)
	}

	err := rows.Err()

	if err != nil {
		return nil, err
	}

	return out, nil
}
