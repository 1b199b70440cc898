package store

import "context"

// GET /products/{id} - product lookup used by the cart
// GET /stock/{id} - stock lookup used by the cart
// POST /products - create a product
// GET /products/list - list all products
// POST /stock - set absolute stock for a product

// Catalog is the product + stock side served to storefront clients.
type Catalog interface {
	CreateProduct(ctx context.Context, name, imageURL string, price float64, stock int) (int64, error)
	ListProducts(ctx context.Context) ([]ProductRow, error)
	GetProduct(ctx context.Context, productID int64) (ProductRow, error)

	GetStock(ctx context.Context, productID int64) (int, error)
	UpdateStock(ctx context.Context, productID int64, newStock int) error
}

// SnapshotStore is a single string-keyed slot per key. Save always
// replaces the whole value.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
}
