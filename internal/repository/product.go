package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/product"
)

const productColumns = `id, name, description, long_description, price, images, category,
		flavors, rating, reviews, servings, ingredients`

const (
	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE ($1 = '' OR category = $1) ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (name, description, long_description, price, images,
		category, flavors, rating, reviews, servings, ingredients)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (name) DO UPDATE SET
		description = EXCLUDED.description,
		long_description = EXCLUDED.long_description,
		price = EXCLUDED.price,
		images = EXCLUDED.images,
		category = EXCLUDED.category,
		flavors = EXCLUDED.flavors,
		rating = EXCLUDED.rating,
		reviews = EXCLUDED.reviews,
		servings = EXCLUDED.servings,
		ingredients = EXCLUDED.ingredients
	RETURNING id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns catalog products ordered by ID, restricted to category when it
// is not empty.
func (r *ProductRepository) List(ctx context.Context, category string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or updates a product keyed by name and sets p.ID.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	images, flavors := p.Images, p.Flavors
	if images == nil {
		images = []string{}
	}
	if flavors == nil {
		flavors = []string{}
	}
	err := r.pool.QueryRow(ctx, upsertProductSQL,
		p.Name, p.Description, p.LongDescription, p.Price, images,
		p.Category, flavors, p.Rating, p.Reviews, p.Servings, p.Ingredients,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.Name, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		reviews  int32
		servings *int32
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.LongDescription, &p.Price, &p.Images, &p.Category,
		&p.Flavors, &p.Rating, &reviews, &servings, &p.Ingredients,
	)
	p.Reviews = int(reviews)
	if servings != nil {
		s := int(*servings)
		p.Servings = &s
	}
	return p, err
}
