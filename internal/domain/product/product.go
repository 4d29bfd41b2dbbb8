package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a bakery catalog item. Descriptive fields that only some
// products carry are pointers so callers never have to guess between "empty"
// and "absent".
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	Category    string          `json:"category"`
	Flavors     []string        `json:"flavors"`
	Rating      float64         `json:"rating"`
	Reviews     int             `json:"reviews"`

	LongDescription *string `json:"longDescription,omitempty"`
	Servings        *int    `json:"servings,omitempty"`
	Ingredients     *string `json:"ingredients,omitempty"`
}

// Thumbnail returns the first image of the product, or "" when it has none.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Repository defines read operations for the product catalog.
type Repository interface {
	// List returns products ordered by ID. An empty category means no filter.
	List(ctx context.Context, category string) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	// GetByIDs returns the products that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
