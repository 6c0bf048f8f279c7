package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by conditional writes when the target row is gone.
var ErrNotFound = errors.New("product not found")

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
}

// Store is the product repository. Every variant must behave identically;
// see store_contract_test.go.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	List(ctx context.Context) ([]Product, error)
	// Get reports a missing product as ok=false with a nil error.
	Get(ctx context.Context, id int64) (Product, bool, error)
	// Add ignores p.ID and returns the product with its storage-assigned id.
	Add(ctx context.Context, p Product) (Product, error)
	// Update and Delete are atomic conditional operations returning ErrNotFound
	// when no row with the id exists at the moment of the write.
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
	// Exists answers without loading the record.
	Exists(ctx context.Context, id int64) (bool, error)
}
