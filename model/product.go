package models

// Product is a catalog product. Amount is only meaningful once the product
// sits in a cart; the catalog itself never fills it in.
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Amount   int     `json:"amount,omitempty"`
}

// Stock is the units available for a product, owned by the catalog service.
type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// Cart is the ordered list of products a shopper selected. Ids are unique.
type Cart []Product

// Find returns the index of the entry for productID, or -1.
func (c Cart) Find(productID int64) int {
	for i := range c {
		if c[i].ID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares nothing with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Count is the total number of units across all entries.
func (c Cart) Count() int {
	n := 0
	for _, p := range c {
		n += p.Amount
	}
	return n
}

// Subtotal is sum(price * amount).
func (c Cart) Subtotal() float64 {
	var total float64
	for _, p := range c {
		total += p.Price * float64(p.Amount)
	}
	return total
}
