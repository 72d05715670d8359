package postgres

import (
	"context"
	"time"

	"github.com/cartline/cartline/internal/domain/product"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductsRepo struct {
	pool    *pgxpool.Pool
	metrics dbObserver
}

func NewProductsRepo(pool *pgxpool.Pool) *ProductsRepo {
	return &ProductsRepo{pool: pool}
}

func (r *ProductsRepo) WithMetrics(obs dbObserver) *ProductsRepo {
	r.metrics = obs
	return r
}

func (r *ProductsRepo) Create(ctx context.Context, req product.AddProductRequest, createdBy string) (product.Product, error) {
	p := product.Product{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Category:  req.Category,
		Price:     req.Price.Float64(),
		Quantity:  req.Quantity.Int(),
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}

	err := observe(r.metrics, "products_insert", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO products (id, name, category, price, quantity, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.Name, p.Category, p.Price, p.Quantity, p.CreatedBy, p.CreatedAt,
		)
		return err
	})

	if err != nil {
		return product.Product{}, err
	}

	return p, nil
}

// List returns the whole catalog. Unpaginated on purpose: the public
// endpoint serves demo-scale data and the response is cached upstream.
func (r *ProductsRepo) List(ctx context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0)

	err := observe(r.metrics, "products_list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, name, category, price, quantity, created_by, created_at
			 FROM products
			 ORDER BY created_at ASC, id ASC`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var p product.Product

			err = rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Quantity, &p.CreatedBy, &p.CreatedAt)

			if err != nil {
				return err
			}

			out = append(out, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
