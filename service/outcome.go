package service

// Outcome is how a cart operation ended. Operations never return errors;
// the caller branches on the outcome instead.
type Outcome int

const (
	// OK means the cart changed and the new snapshot was persisted.
	OK Outcome = iota
	// Ignored means the request was a silent no-op (non-positive amount).
	Ignored
	// OutOfStock means the requested quantity exceeds the available stock.
	OutOfStock
	// NotFound means the product is not in the cart.
	NotFound
	// Failed covers catalog lookups and persistence errors.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Ignored:
		return "ignored"
	case OutOfStock:
		return "out_of_stock"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// User-facing messages, as the storefront shows them.
const (
	MsgOutOfStock   = "Quantidade solicitada fora de estoque"
	MsgAddFailed    = "Erro na adição do produto"
	MsgRemoveFailed = "Erro na remoção do produto"
	MsgUpdateFailed = "Erro na alteração de quantidade do produto"
)
