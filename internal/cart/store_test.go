package cart

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/envasesysoluciones/cotizaciones-backend/internal/notifications"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	data    map[string][]byte
	saves   int
	loadErr error
	saveErr error
}

func newMemStorage() *memStorage {
	return &memStorage{data: map[string][]byte{}}
}

func (m *memStorage) Load(_ context.Context, sessionID, key string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data[sessionID+"/"+key], nil
}

func (m *memStorage) Save(_ context.Context, sessionID, key string, payload []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data[sessionID+"/"+key] = append([]byte(nil), payload...)
	return nil
}

func (m *memStorage) Delete(_ context.Context, sessionID, key string) error {
	delete(m.data, sessionID+"/"+key)
	return nil
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Show(message string) notifications.Notification {
	r.messages = append(r.messages, message)
	return notifications.Notification{ID: int64(len(r.messages)), Message: message}
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func pricePtr(v string) *decimal.Decimal {
	d := price(v)
	return &d
}

func jarItem(code, lid string, p string, qty int) LineItem {
	return LineItem{
		ProductID:        "prod-" + code,
		ProductName:      "Frasco " + code,
		VariantCode:      code,
		Capacity:         250,
		Price:            price(p),
		Quantity:         qty,
		SelectedLidColor: lid,
	}
}

func newHydratedStore(t *testing.T, storage Storage, notifier Notifier) *Store {
	t.Helper()
	store, err := NewStore(StoreParams{
		Storage:   storage,
		SessionID: "sess-1",
		Key:       "cotizacion-cart",
		Notifier:  notifier,
	})
	require.NoError(t, err)
	require.NoError(t, store.Hydrate(context.Background()))
	return store
}

func TestItemID(t *testing.T) {
	assert.Equal(t, "FR-250", ItemID("FR-250", ""))
	assert.Equal(t, "FR-250-negro", ItemID("FR-250", "negro"))
}

func TestEffectivePrice(t *testing.T) {
	item := jarItem("A", "", "100", 1)
	assert.True(t, item.EffectivePrice().Equal(price("100")))

	item.DiscountPrice = pricePtr("80")
	assert.True(t, item.EffectivePrice().Equal(price("80")))
	assert.True(t, item.HasDiscount())

	item.DiscountPrice = pricePtr("0")
	assert.True(t, item.EffectivePrice().IsZero(), "a present zero discount is honoured")

	item.DiscountPrice = pricePtr("120")
	assert.True(t, item.EffectivePrice().Equal(price("100")), "a discount above price is ignored")

	item.DiscountPrice = pricePtr("-5")
	assert.True(t, item.EffectivePrice().Equal(price("100")))
}

func TestStore_AddMergesSameIdentity(t *testing.T) {
	notifier := &recordingNotifier{}
	store := newHydratedStore(t, newMemStorage(), notifier)
	ctx := context.Background()

	_, err := store.AddItem(ctx, jarItem("FR-250", "", "100", 1))
	require.NoError(t, err)
	incoming := jarItem("FR-250", "", "100", 2)
	incoming.ProductName = "otro nombre"
	_, err = store.AddItem(ctx, incoming)
	require.NoError(t, err)

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "Frasco FR-250", items[0].ProductName, "merge keeps first-added fields")
	assert.Equal(t, []string{`"Frasco FR-250" añadido al carrito`, `"otro nombre" añadido al carrito`}, notifier.messages)
}

func TestStore_LidColorIsDistinctIdentity(t *testing.T) {
	store := newHydratedStore(t, newMemStorage(), nil)
	ctx := context.Background()

	_, err := store.AddItem(ctx, jarItem("FR-250", "", "100", 1))
	require.NoError(t, err)
	_, err = store.AddItem(ctx, jarItem("FR-250", "dorado", "100", 1))
	require.NoError(t, err)

	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "FR-250", items[0].ID())
	assert.Equal(t, "FR-250-dorado", items[1].ID())
}

func TestStore_AddNormalizesQuantity(t *testing.T) {
	store := newHydratedStore(t, newMemStorage(), nil)

	_, err := store.AddItem(context.Background(), jarItem("A", "", "10", 0))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Items()[0].Quantity)
}

func TestStore_AddRequiresVariantCode(t *testing.T) {
	store := newHydratedStore(t, newMemStorage(), nil)

	_, err := store.AddItem(context.Background(), LineItem{ProductName: "x"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestStore_UpdateQuantity(t *testing.T) {
	store := newHydratedStore(t, newMemStorage(), nil)
	ctx := context.Background()
	_, err := store.AddItem(ctx, jarItem("A", "", "10", 1))
	require.NoError(t, err)

	require.NoError(t, store.UpdateQuantity(ctx, "A", 7))
	assert.Equal(t, 7, store.TotalItems())

	require.NoError(t, store.UpdateQuantity(ctx, "missing", 3))
	assert.Equal(t, 7, store.TotalItems())

	require.NoError(t, store.UpdateQuantity(ctx, "A", 0))
	assert.Empty(t, store.Items())
}

func TestStore_RemoveQuotedKeepsLaterAdditions(t *testing.T) {
	store := newHydratedStore(t, newMemStorage(), nil)
	ctx := context.Background()
	_, err := store.AddItem(ctx, jarItem("A", "", "10", 2))
	require.NoError(t, err)
	_, err = store.AddItem(ctx, jarItem("B", "", "10", 1))
	require.NoError(t, err)
	quoted := store.Items()

	_, err = store.AddItem(ctx, jarItem("A", "", "10", 3))
	require.NoError(t, err)
	_, err = store.AddItem(ctx, jarItem("C", "", "10", 1))
	require.NoError(t, err)

	require.NoError(t, store.RemoveQuoted(ctx, quoted))
	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ID())
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "C", items[1].ID())
}

func TestStore_RemoveQuotedEmptiesQuotedCart(t *testing.T) {
	storage := newMemStorage()
	store := newHydratedStore(t, storage, nil)
	ctx := context.Background()
	_, err := store.AddItem(ctx, jarItem("A", "negro", "10", 2))
	require.NoError(t, err)

	require.NoError(t, store.RemoveQuoted(ctx, store.Items()))
	assert.Empty(t, store.Items())

	reloaded := newHydratedStore(t, storage, nil)
	assert.Empty(t, reloaded.Items())
}

func TestStore_RemoveMissingIsNoop(t *testing.T) {
	store := newHydratedStore(t, newMemStorage(), nil)
	ctx := context.Background()
	_, err := store.AddItem(ctx, jarItem("A", "", "10", 1))
	require.NoError(t, err)

	require.NoError(t, store.RemoveItem(ctx, "B"))
	assert.Len(t, store.Items(), 1)
	require.NoError(t, store.RemoveItem(ctx, "A"))
	assert.Empty(t, store.Items())
}

func TestStore_Totals(t *testing.T) {
	store := newHydratedStore(t, newMemStorage(), nil)
	ctx := context.Background()

	discounted := jarItem("B", "", "200", 1)
	discounted.DiscountPrice = pricePtr("150")
	_, err := store.AddItem(ctx, jarItem("A", "", "100", 2))
	require.NoError(t, err)
	_, err = store.AddItem(ctx, discounted)
	require.NoError(t, err)

	assert.Equal(t, 3, store.TotalItems())
	assert.True(t, store.TotalPrice().Equal(price("350")), "got %s", store.TotalPrice())
}

func TestStore_PersistsAndRehydrates(t *testing.T) {
	storage := newMemStorage()
	store := newHydratedStore(t, storage, nil)
	ctx := context.Background()

	_, err := store.AddItem(ctx, jarItem("A", "", "12.50", 2))
	require.NoError(t, err)
	_, err = store.AddItem(ctx, jarItem("B", "blanco", "8", 1))
	require.NoError(t, err)

	other := newHydratedStore(t, storage, nil)
	want, err := EncodeItems(store.Items())
	require.NoError(t, err)
	got, err := EncodeItems(other.Items())
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
	require.Len(t, other.Items(), 2)
	assert.Equal(t, "B-blanco", other.Items()[1].ID())
	assert.True(t, other.TotalPrice().Equal(price("33")))

	require.NoError(t, other.Clear(ctx))
	assert.Equal(t, "[]", string(storage.data["sess-1/cotizacion-cart"]))
}

func TestStore_CorruptPayloadHydratesEmpty(t *testing.T) {
	storage := newMemStorage()
	storage.data["sess-1/cotizacion-cart"] = []byte("{not json")
	var buf bytes.Buffer
	store, err := NewStore(StoreParams{
		Storage:   storage,
		SessionID: "sess-1",
		Key:       "cotizacion-cart",
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: &buf}),
	})
	require.NoError(t, err)

	require.NoError(t, store.Hydrate(context.Background()))
	assert.Empty(t, store.Items())
	assert.True(t, strings.Contains(buf.String(), "cart.storage.corrupt_payload"))
}

func TestStore_LoadErrorIsReturned(t *testing.T) {
	storage := newMemStorage()
	storage.loadErr = errors.New("redis down")
	store, err := NewStore(StoreParams{Storage: storage, SessionID: "s", Key: "k"})
	require.NoError(t, err)

	err = store.Hydrate(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestStore_SaveErrorKeepsMutation(t *testing.T) {
	storage := newMemStorage()
	store := newHydratedStore(t, storage, nil)
	storage.saveErr = errors.New("disk full")

	_, err := store.AddItem(context.Background(), jarItem("A", "", "1", 1))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.Len(t, store.Items(), 1)
}

func TestStore_DoesNotPersistBeforeHydrate(t *testing.T) {
	storage := newMemStorage()
	store, err := NewStore(StoreParams{Storage: storage, SessionID: "s", Key: "k"})
	require.NoError(t, err)

	_, err = store.AddItem(context.Background(), jarItem("A", "", "1", 1))
	require.NoError(t, err)
	assert.Zero(t, storage.saves)
}

func TestStore_OpenStateIsNotPersisted(t *testing.T) {
	storage := newMemStorage()
	store := newHydratedStore(t, storage, nil)
	store.SetOpen(true)
	assert.True(t, store.IsOpen())
	assert.Zero(t, storage.saves)
}

func TestDecodeItemsDropsInvalidEntries(t *testing.T) {
	items, err := DecodeItems([]byte(`[{"variantCode":"A","quantity":2,"price":10},{"variantCode":"","quantity":1},{"variantCode":"B","quantity":0}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].VariantCode)
	assert.True(t, items[0].Price.Equal(price("10")))
}

func TestEncodeItemsWritesNumericPrices(t *testing.T) {
	item := jarItem("A", "", "12.5", 1)
	item.DiscountPrice = pricePtr("10")
	payload, err := EncodeItems([]LineItem{item})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"price":12.5`)
	assert.Contains(t, string(payload), `"discountPrice":10`)
}
