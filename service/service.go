package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront-cart/catalog"
	models "storefront-cart/model"
	"storefront-cart/notify"
	"storefront-cart/store"

	"github.com/sirupsen/logrus"
)

// DefaultStorageKey is the slot the storefront has always used.
const DefaultStorageKey = "@RocketShoes:cart"

// ErrMalformedSnapshot is returned by NewCartStore when the stored cart
// cannot be decoded.
var ErrMalformedSnapshot = errors.New("malformed cart snapshot")

type Deps struct {
	Snapshots store.SnapshotStore
	Catalog   catalog.Lookup
	Notifier  notify.Notifier
	Log       logrus.FieldLogger
	// Key defaults to DefaultStorageKey.
	Key string
}

// CartStore holds the shopper's cart, mirrors it to a snapshot slot and
// checks quantity changes against the catalog's stock.
//
// The mutex only protects the published cart. Catalog lookups run
// unlocked, so two overlapping operations can still lose an update.
type CartStore struct {
	snapshots store.SnapshotStore
	catalog   catalog.Lookup
	notifier  notify.Notifier
	log       logrus.FieldLogger
	key       string

	mu   sync.RWMutex
	cart models.Cart
}

// NewCartStore loads the persisted cart, or starts empty when there is none.
func NewCartStore(ctx context.Context, d Deps) (*CartStore, error) {
	if d.Snapshots == nil || d.Catalog == nil || d.Notifier == nil {
		return nil, errors.New("snapshots, catalog and notifier are required")
	}
	s := &CartStore{
		snapshots: d.Snapshots,
		catalog:   d.Catalog,
		notifier:  d.Notifier,
		log:       d.Log,
		key:       d.Key,
		cart:      models.Cart{},
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.key == "" {
		s.key = DefaultStorageKey
	}

	raw, ok, err := s.snapshots.Load(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	if ok && raw != "" {
		var c models.Cart
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
		}
		if c != nil {
			s.cart = c
		}
	}
	s.log.WithField("items", len(s.cart)).Info("cart loaded")
	return s, nil
}

// Cart returns a copy of the current cart.
func (s *CartStore) Cart() models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// AddProduct adds one unit of productID, appending the product when it is
// not in the cart yet.
func (s *CartStore) AddProduct(ctx context.Context, productID int64) Outcome {
	log := s.log.WithFields(logrus.Fields{"op": "add", "product_id": productID})

	next := s.Cart()
	i := next.Find(productID)

	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		return s.fail(ctx, log, err, MsgAddFailed)
	}

	amount := 1
	if i >= 0 {
		amount = next[i].Amount + 1
	}
	if amount > stock.Amount {
		log.WithFields(logrus.Fields{"amount": amount, "stock": stock.Amount}).Info("out of stock")
		s.notifier.Notify(ctx, MsgOutOfStock)
		return OutOfStock
	}

	if i >= 0 {
		next[i].Amount = amount
	} else {
		p, err := s.catalog.Product(ctx, productID)
		if err != nil {
			return s.fail(ctx, log, err, MsgAddFailed)
		}
		p.ID = productID
		p.Amount = 1
		next = append(next, p)
	}

	if err := s.publish(ctx, next); err != nil {
		return s.fail(ctx, log, err, MsgAddFailed)
	}
	log.WithField("amount", amount).Debug("product added")
	return OK
}

// RemoveProduct drops the entry for productID.
func (s *CartStore) RemoveProduct(ctx context.Context, productID int64) Outcome {
	log := s.log.WithFields(logrus.Fields{"op": "remove", "product_id": productID})

	current := s.Cart()
	i := current.Find(productID)
	if i < 0 {
		log.Info("product not in cart")
		s.notifier.Notify(ctx, MsgRemoveFailed)
		return NotFound
	}

	next := append(current[:i:i], current[i+1:]...)
	if err := s.publish(ctx, next); err != nil {
		return s.fail(ctx, log, err, MsgRemoveFailed)
	}
	log.Debug("product removed")
	return OK
}

// UpdateProductAmount sets the quantity of an entry already in the cart.
// Non-positive amounts are ignored. The stock check rejects any amount
// with amount+1 > stock, one unit stricter than AddProduct.
func (s *CartStore) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) Outcome {
	log := s.log.WithFields(logrus.Fields{"op": "update", "product_id": req.ProductID, "amount": req.Amount})

	next := s.Cart()
	i := next.Find(req.ProductID)
	if i < 0 {
		log.Info("product not in cart")
		s.notifier.Notify(ctx, MsgUpdateFailed)
		return NotFound
	}
	if req.Amount <= 0 {
		return Ignored
	}

	stock, err := s.catalog.Stock(ctx, req.ProductID)
	if err != nil {
		return s.fail(ctx, log, err, MsgUpdateFailed)
	}
	// TODO: compare Amount against stock once the product team confirms
	// the extra unit of headroom is unintended.
	if req.Amount+1 > stock.Amount {
		log.WithField("stock", stock.Amount).Info("out of stock")
		s.notifier.Notify(ctx, MsgOutOfStock)
		return OutOfStock
	}

	next[i].Amount = req.Amount
	if err := s.publish(ctx, next); err != nil {
		return s.fail(ctx, log, err, MsgUpdateFailed)
	}
	log.Debug("amount updated")
	return OK
}

// publish persists next and only then makes it the current cart.
func (s *CartStore) publish(ctx context.Context, next models.Cart) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.snapshots.Save(ctx, s.key, string(raw)); err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	s.mu.Lock()
	s.cart = next
	s.mu.Unlock()
	return nil
}

func (s *CartStore) fail(ctx context.Context, log logrus.FieldLogger, err error, msg string) Outcome {
	log.WithError(err).Warn("cart operation failed")
	s.notifier.Notify(ctx, msg)
	return Failed
}
