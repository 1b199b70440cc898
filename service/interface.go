package service

import (
	"context"

	models "storefront-cart/model"
)

// CartService is the surface the HTTP layer consumes.
type CartService interface {
	Cart() models.Cart
	AddProduct(ctx context.Context, productID int64) Outcome
	RemoveProduct(ctx context.Context, productID int64) Outcome
	UpdateProductAmount(ctx context.Context, req UpdateProductAmount) Outcome
}

// UpdateProductAmount is the argument of CartStore.UpdateProductAmount.
type UpdateProductAmount struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}
