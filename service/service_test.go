package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	models "storefront-cart/model"
	"storefront-cart/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeCatalog struct {
	mu       sync.Mutex
	stock    map[int64]int
	products map[int64]models.Product
	stockErr error
	prodErr  error

	stockCalls   int
	productCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{stock: map[int64]int{}, products: map[int64]models.Product{}}
}

func (f *fakeCatalog) Stock(_ context.Context, id int64) (models.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stockCalls++
	if f.stockErr != nil {
		return models.Stock{}, f.stockErr
	}
	n, ok := f.stock[id]
	if !ok {
		return models.Stock{}, errors.New("stock not found")
	}
	return models.Stock{ID: id, Amount: n}, nil
}

func (f *fakeCatalog) Product(_ context.Context, id int64) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	if f.prodErr != nil {
		return models.Product{}, f.prodErr
	}
	p, ok := f.products[id]
	if !ok {
		return models.Product{}, errors.New("product not found")
	}
	return p, nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []string
}

func (r *recordingNotifier) Notify(_ context.Context, m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

type failingSnapshots struct {
	*store.MemoryStore
	saveErr error
}

func (f *failingSnapshots) Save(ctx context.Context, key, value string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.Save(ctx, key, value)
}

type fixture struct {
	cart      *CartStore
	catalog   *fakeCatalog
	notifier  *recordingNotifier
	snapshots *store.MemoryStore
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = &bytes.Buffer{}
	return l
}

func seed(t *testing.T, snaps *store.MemoryStore, c models.Cart) {
	t.Helper()
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, snaps.Save(context.Background(), DefaultStorageKey, string(raw)))
}

func newFixture(t *testing.T, initial models.Cart) *fixture {
	t.Helper()
	f := &fixture{
		catalog:   newFakeCatalog(),
		notifier:  &recordingNotifier{},
		snapshots: store.NewMemoryStore(),
	}
	if initial != nil {
		seed(t, f.snapshots, initial)
	}
	cs, err := NewCartStore(context.Background(), Deps{
		Snapshots: f.snapshots,
		Catalog:   f.catalog,
		Notifier:  f.notifier,
		Log:       quietLogger(),
	})
	require.NoError(t, err)
	f.cart = cs
	return f
}

func (f *fixture) persisted(t *testing.T) models.Cart {
	t.Helper()
	raw, ok, err := f.snapshots.Load(context.Background(), DefaultStorageKey)
	require.NoError(t, err)
	require.True(t, ok, "expected a persisted snapshot")
	var c models.Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return c
}

var sneaker = models.Product{ID: 5, Name: "Tênis de Caminhada", ImageURL: "https://img/5.png", Price: 179.9}

// ---- initialization ----

func TestNewCartStoreEmptyWhenNoSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	assert.Empty(t, f.cart.Cart())
}

func TestNewCartStoreLoadsSnapshot(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Name: "a", Amount: 3}, {ID: 7, Name: "b", Amount: 1}})
	c := f.cart.Cart()
	require.Len(t, c, 2)
	assert.Equal(t, int64(5), c[0].ID)
	assert.Equal(t, 3, c[0].Amount)
}

func TestNewCartStoreMalformedSnapshotFails(t *testing.T) {
	snaps := store.NewMemoryStore()
	require.NoError(t, snaps.Save(context.Background(), DefaultStorageKey, "{not json"))

	_, err := NewCartStore(context.Background(), Deps{
		Snapshots: snaps,
		Catalog:   newFakeCatalog(),
		Notifier:  &recordingNotifier{},
		Log:       quietLogger(),
	})
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestNewCartStoreCustomKeyAndMissingDeps(t *testing.T) {
	snaps := store.NewMemoryStore()
	require.NoError(t, snaps.Save(context.Background(), "shop:cart", `[{"id":1,"amount":2}]`))

	cs, err := NewCartStore(context.Background(), Deps{
		Snapshots: snaps, Catalog: newFakeCatalog(), Notifier: &recordingNotifier{}, Key: "shop:cart",
	})
	require.NoError(t, err)
	assert.Len(t, cs.Cart(), 1)

	_, err = NewCartStore(context.Background(), Deps{Snapshots: snaps})
	assert.Error(t, err)
}

// ---- addProduct ----

func TestAddProductToEmptyCart(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.stock[5] = 10
	f.catalog.products[5] = sneaker

	require.Equal(t, OK, f.cart.AddProduct(context.Background(), 5))

	want := sneaker
	want.Amount = 1
	assert.Equal(t, models.Cart{want}, f.cart.Cart())
	assert.Equal(t, models.Cart{want}, f.persisted(t))
	assert.Empty(t, f.notifier.messages())
}

func TestAddProductIncrementsExisting(t *testing.T) {
	existing := sneaker
	existing.Amount = 2
	f := newFixture(t, models.Cart{existing})
	f.catalog.stock[5] = 3

	require.Equal(t, OK, f.cart.AddProduct(context.Background(), 5))
	assert.Equal(t, 3, f.cart.Cart()[0].Amount)
	assert.Equal(t, 0, f.catalog.productCalls, "existing entries must not refetch the product")
	assert.Equal(t, 3, f.persisted(t)[0].Amount)
}

func TestAddProductOutOfStock(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 3}})
	f.catalog.stock[5] = 3

	require.Equal(t, OutOfStock, f.cart.AddProduct(context.Background(), 5))
	assert.Equal(t, 3, f.cart.Cart()[0].Amount)
	assert.Equal(t, []string{MsgOutOfStock}, f.notifier.messages())
}

func TestAddProductZeroStockForNewProduct(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.stock[5] = 0
	f.catalog.products[5] = sneaker

	require.Equal(t, OutOfStock, f.cart.AddProduct(context.Background(), 5))
	assert.Empty(t, f.cart.Cart())
	assert.Equal(t, 0, f.catalog.productCalls)
}

func TestAddProductLookupFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.stockErr = errors.New("connection refused")

	require.Equal(t, Failed, f.cart.AddProduct(context.Background(), 5))
	assert.Empty(t, f.cart.Cart())

	f.catalog.stockErr = nil
	f.catalog.stock[5] = 10
	f.catalog.prodErr = errors.New("502")
	require.Equal(t, Failed, f.cart.AddProduct(context.Background(), 5))
	assert.Empty(t, f.cart.Cart())

	assert.Equal(t, []string{MsgAddFailed, MsgAddFailed}, f.notifier.messages())
	_, ok, _ := f.snapshots.Load(context.Background(), DefaultStorageKey)
	assert.False(t, ok, "failed operations must not persist")
}

func TestAddProductPersistFailureLeavesCart(t *testing.T) {
	snaps := &failingSnapshots{MemoryStore: store.NewMemoryStore(), saveErr: errors.New("disk full")}
	cat := newFakeCatalog()
	cat.stock[5] = 10
	cat.products[5] = sneaker
	rec := &recordingNotifier{}

	cs, err := NewCartStore(context.Background(), Deps{Snapshots: snaps, Catalog: cat, Notifier: rec, Log: quietLogger()})
	require.NoError(t, err)

	assert.Equal(t, Failed, cs.AddProduct(context.Background(), 5))
	assert.Empty(t, cs.Cart())
	assert.Equal(t, []string{MsgAddFailed}, rec.messages())
}

func TestAddProductUsesRequestedID(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.stock[5] = 10
	wrong := sneaker
	wrong.ID = 99
	wrong.Amount = 7
	f.catalog.products[5] = wrong

	require.Equal(t, OK, f.cart.AddProduct(context.Background(), 5))
	c := f.cart.Cart()
	assert.Equal(t, int64(5), c[0].ID)
	assert.Equal(t, 1, c[0].Amount)
}

// ---- removeProduct ----

func TestRemoveProduct(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 1}, {ID: 7, Amount: 2}, {ID: 9, Amount: 1}})

	require.Equal(t, OK, f.cart.RemoveProduct(context.Background(), 7))
	c := f.cart.Cart()
	require.Len(t, c, 2)
	assert.Equal(t, int64(5), c[0].ID)
	assert.Equal(t, int64(9), c[1].ID)
	assert.Equal(t, c, f.persisted(t))
}

func TestRemoveLastProductPersistsEmptyCart(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 1}})
	require.Equal(t, OK, f.cart.RemoveProduct(context.Background(), 5))

	raw, ok, err := f.snapshots.Load(context.Background(), DefaultStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[]`, raw)
}

func TestRemoveMissingProduct(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 7, Amount: 1}})

	require.Equal(t, NotFound, f.cart.RemoveProduct(context.Background(), 9))
	assert.Equal(t, models.Cart{{ID: 7, Amount: 1}}, f.cart.Cart())
	assert.Equal(t, []string{MsgRemoveFailed}, f.notifier.messages())
}

// ---- updateProductAmount ----

func TestUpdateProductAmount(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 1}})
	f.catalog.stock[5] = 10

	require.Equal(t, OK, f.cart.UpdateProductAmount(context.Background(), UpdateProductAmount{ProductID: 5, Amount: 4}))
	assert.Equal(t, 4, f.cart.Cart()[0].Amount)
	assert.Equal(t, 4, f.persisted(t)[0].Amount)
	assert.Empty(t, f.notifier.messages())
}

func TestUpdateProductAmountNonPositiveIsSilent(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 2}})
	f.catalog.stock[5] = 10

	for _, amount := range []int{0, -3} {
		require.Equal(t, Ignored, f.cart.UpdateProductAmount(context.Background(), UpdateProductAmount{ProductID: 5, Amount: amount}))
	}
	assert.Equal(t, 2, f.cart.Cart()[0].Amount)
	assert.Empty(t, f.notifier.messages())
	assert.Equal(t, 0, f.catalog.stockCalls)
}

func TestUpdateProductAmountMissingProduct(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 2}})

	// presence is checked before the amount
	require.Equal(t, NotFound, f.cart.UpdateProductAmount(context.Background(), UpdateProductAmount{ProductID: 6, Amount: 0}))
	assert.Equal(t, []string{MsgUpdateFailed}, f.notifier.messages())
}

func TestUpdateProductAmountKeepsOneUnitOfHeadroom(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 1}})
	f.catalog.stock[5] = 3

	// 2+1 > 3 is false: accepted
	require.Equal(t, OK, f.cart.UpdateProductAmount(context.Background(), UpdateProductAmount{ProductID: 5, Amount: 2}))
	assert.Equal(t, 2, f.cart.Cart()[0].Amount)
	assert.Empty(t, f.notifier.messages())

	// 3 units are in stock, but 3+1 > 3 rejects it; AddProduct would allow it
	require.Equal(t, OutOfStock, f.cart.UpdateProductAmount(context.Background(), UpdateProductAmount{ProductID: 5, Amount: 3}))
	assert.Equal(t, 2, f.cart.Cart()[0].Amount)
	assert.Equal(t, 2, f.persisted(t)[0].Amount)
	assert.Equal(t, []string{MsgOutOfStock}, f.notifier.messages())
}

func TestUpdateProductAmountLookupFailure(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 2}})
	f.catalog.stockErr = errors.New("timeout")

	require.Equal(t, Failed, f.cart.UpdateProductAmount(context.Background(), UpdateProductAmount{ProductID: 5, Amount: 1}))
	assert.Equal(t, 2, f.cart.Cart()[0].Amount)
	assert.Equal(t, []string{MsgUpdateFailed}, f.notifier.messages())
}

// ---- properties ----

func TestCartReturnsCopy(t *testing.T) {
	f := newFixture(t, models.Cart{{ID: 5, Amount: 2}})
	c := f.cart.Cart()
	c[0].Amount = 100
	assert.Equal(t, 2, f.cart.Cart()[0].Amount)
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	for id := int64(1); id <= 4; id++ {
		f.catalog.stock[id] = 5
		f.catalog.products[id] = models.Product{ID: id, Name: "p", ImageURL: "https://img", Price: float64(id) * 1.5}
		require.Equal(t, OK, f.cart.AddProduct(context.Background(), id))
	}
	require.Equal(t, OK, f.cart.AddProduct(context.Background(), 2))
	require.Equal(t, OK, f.cart.RemoveProduct(context.Background(), 3))

	reloaded, err := NewCartStore(context.Background(), Deps{
		Snapshots: f.snapshots, Catalog: f.catalog, Notifier: f.notifier, Log: quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, f.cart.Cart(), reloaded.Cart())
}

func TestInvariantsHoldAcrossOperations(t *testing.T) {
	f := newFixture(t, nil)
	stock := map[int64]int{1: 2, 2: 1, 3: 4}
	for id, n := range stock {
		f.catalog.stock[id] = n
		f.catalog.products[id] = models.Product{ID: id, Name: "p"}
	}

	ctx := context.Background()
	ops := []func(){
		func() { f.cart.AddProduct(ctx, 1) },
		func() { f.cart.AddProduct(ctx, 1) },
		func() { f.cart.AddProduct(ctx, 1) },
		func() { f.cart.AddProduct(ctx, 2) },
		func() { f.cart.AddProduct(ctx, 2) },
		func() { f.cart.UpdateProductAmount(ctx, UpdateProductAmount{ProductID: 3, Amount: 2}) },
		func() { f.cart.AddProduct(ctx, 3) },
		func() { f.cart.UpdateProductAmount(ctx, UpdateProductAmount{ProductID: 3, Amount: 3}) },
		func() { f.cart.UpdateProductAmount(ctx, UpdateProductAmount{ProductID: 3, Amount: 9}) },
		func() { f.cart.RemoveProduct(ctx, 2) },
		func() { f.cart.AddProduct(ctx, 2) },
		func() { f.cart.RemoveProduct(ctx, 8) },
	}
	for _, op := range ops {
		op()
		seen := map[int64]bool{}
		for _, p := range f.cart.Cart() {
			assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
			seen[p.ID] = true
			assert.Greater(t, p.Amount, 0)
			assert.LessOrEqual(t, p.Amount, stock[p.ID])
		}
	}
	assert.Equal(t, models.Cart{{ID: 1, Name: "p", Amount: 2}, {ID: 3, Name: "p", Amount: 3}, {ID: 2, Name: "p", Amount: 1}}, f.cart.Cart())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "ignored", Ignored.String())
	assert.Equal(t, "out_of_stock", OutOfStock.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
