package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuznetsov-tulips/tulip-bot/internal/models"
	"github.com/kuznetsov-tulips/tulip-bot/internal/redis"
)

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) ConversationKey(userID int64) string {
	return fmt.Sprintf("conv:%d", userID)
}

func sampleConfirming() ConfirmingOrder {
	pickup := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	return ConfirmingOrder{
		Draft: Draft{
			ID:    "draft-1",
			Items: models.LineItems{{Variant: 2, Quantity: 15, Count: 1}},
			Saved: &SavedDetails{PickupAt: pickup, Name: models.PersonName{First: "Иван", Last: "Иванов"}, Phone: "+79991234567"},
		},
		PickupAt: pickup,
		Name:     models.PersonName{First: "Иван", Last: "Иванов"},
		Phone:    "+79991234567",
	}
}

func TestCodecKeepsVariant(t *testing.T) {
	states := []State{
		AwaitingConsent{},
		SelectingQuantity{Draft: Draft{ID: "d"}, Variant: 4},
		sampleConfirming(),
		AwaitingReceiptConfirmation{
			OrderNumber: "007",
			Candidate:   models.ReceiptRef{FileID: "file", Kind: models.ReceiptPhoto},
		},
	}
	for _, s := range states {
		raw, err := Encode(s)
		require.NoError(t, err)
		decoded, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, s.Kind(), decoded.Kind())
		assert.IsType(t, s, decoded)
	}

	raw, err := Encode(sampleConfirming())
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)
	confirming := decoded.(ConfirmingOrder)
	assert.True(t, confirming.PickupAt.Equal(sampleConfirming().PickupAt))
	assert.Equal(t, "+79991234567", confirming.Draft.Saved.Phone)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"dancing","data":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, store.Put(ctx, 1, AwaitingPayment{OrderNumber: "001"}))
	s, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, AwaitingPayment{OrderNumber: "001"}, s)

	require.NoError(t, store.Delete(ctx, 1))
	s, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, s)

	assert.Error(t, store.Put(ctx, 1, nil))
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewRedisStore(kv, time.Hour)

	s, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, store.Put(ctx, 5, SelectingVariant{Draft: Draft{ID: "d-5"}}))
	assert.Equal(t, time.Hour, kv.ttls[kv.ConversationKey(5)])

	s, err = store.Get(ctx, 5)
	require.NoError(t, err)
	require.IsType(t, SelectingVariant{}, s)
	assert.Equal(t, "d-5", s.(SelectingVariant).Draft.ID)

	require.NoError(t, store.Delete(ctx, 5))
	s, err = store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, s)
}

