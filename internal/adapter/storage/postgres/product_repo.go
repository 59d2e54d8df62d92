package postgres

import (
	"context"
	"errors"
	"fmt"

	"tag-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ProductRepo implements ports.Catalog over the products table.
type ProductRepo struct {
	pool Pool
	tx   *Transactor
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(pool Pool) *ProductRepo {
	return &ProductRepo{pool: pool, tx: NewTransactor(pool)}
}

// Lookup fetches an active product. Returns nil, nil when absent.
func (r *ProductRepo) Lookup(ctx context.Context, id uint16) (*domain.Product, error) {
	query := `SELECT id, name, price FROM products WHERE id = $1 AND active`

	var (
		pid   int32
		price int64
		p     domain.Product
	)
	err := r.pool.QueryRow(ctx, query, int32(id)).Scan(&pid, &p.Name, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	p.ID = uint16(pid)
	p.Price = uint32(price)
	return &p, nil
}

// List returns every active product ordered by id.
func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price FROM products WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var (
			pid   int32
			price int64
			p     domain.Product
		)
		if err := rows.Scan(&pid, &p.Name, &price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ID = uint16(pid)
		p.Price = uint32(price)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

// Upsert inserts or updates products in one transaction, so a partial
// price list is never visible.
func (r *ProductRepo) Upsert(ctx context.Context, products []domain.Product) error {
	query := `INSERT INTO products (id, name, price, active, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, active = TRUE, updated_at = NOW()`

	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		for _, p := range products {
			if _, err := tx.Exec(ctx, query, int32(p.ID), p.Name, int64(p.Price)); err != nil {
				return fmt.Errorf("upsert product %d: %w", p.ID, err)
			}
		}
		return nil
	})
}
