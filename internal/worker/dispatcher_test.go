package worker

import (
	"context"
	"testing"

	"tillsync/internal/dto"
	"tillsync/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueCreatesPendingEntry(t *testing.T) {
	queue := newMemQueue()
	d := NewDispatcher(queue, "till-01")

	entry, err := d.Enqueue(context.Background(), nil, model.EntitySale, model.OpCreate, map[string]string{"k": "v"})
	require.NoError(t, err)

	assert.Equal(t, model.QueuePending, entry.Status)
	assert.Equal(t, model.EntitySale, entry.EntityType)
	assert.Equal(t, 0, entry.AttemptCount)
	assert.Len(t, entry.IdempotencyKey, 64) // hex sha256
	require.Len(t, queue.entries, 1)
}

func TestIdempotencyKeyStableAcrossRetries(t *testing.T) {
	queue := newMemQueue()
	d := NewDispatcher(queue, "till-01")

	payload := dto.SessionOpenPayload{
		SessionID:     uuid.MustParse("7b8a3a6e-5f7d-4f7b-9dcb-111111111111"),
		SessionNumber: 7,
		PointOfSaleID: 1,
		OpenedBy:      uuid.MustParse("7b8a3a6e-5f7d-4f7b-9dcb-222222222222"),
		OpeningAmount: decimal.RequireFromString("1000.00"),
	}

	first, err := d.Enqueue(context.Background(), nil, model.EntityCashSessionOpen, model.OpCreate, payload)
	require.NoError(t, err)
	second, err := d.Enqueue(context.Background(), nil, model.EntityCashSessionOpen, model.OpCreate, payload)
	require.NoError(t, err)

	// Same logical mutation → same key, regardless of when it is serialized.
	assert.Equal(t, first.IdempotencyKey, second.IdempotencyKey)
}

func TestIdempotencyKeyVariesByDeviceAndPayload(t *testing.T) {
	queueA, queueB := newMemQueue(), newMemQueue()
	dA := NewDispatcher(queueA, "till-01")
	dB := NewDispatcher(queueB, "till-02")

	payload := map[string]string{"ticket": "42"}
	a, err := dA.Enqueue(context.Background(), nil, model.EntitySale, model.OpCreate, payload)
	require.NoError(t, err)
	b, err := dB.Enqueue(context.Background(), nil, model.EntitySale, model.OpCreate, payload)
	require.NoError(t, err)
	assert.NotEqual(t, a.IdempotencyKey, b.IdempotencyKey, "device id must salt the key")

	c, err := dA.Enqueue(context.Background(), nil, model.EntitySale, model.OpCreate, map[string]string{"ticket": "43"})
	require.NoError(t, err)
	assert.NotEqual(t, a.IdempotencyKey, c.IdempotencyKey)

	d, err := dA.Enqueue(context.Background(), nil, model.EntityCashMovement, model.OpCreate, payload)
	require.NoError(t, err)
	assert.NotEqual(t, a.IdempotencyKey, d.IdempotencyKey, "entity type is part of the key")
}

func TestCanonicalJSONSortsKeys(t *testing.T) {
	out, err := canonicalJSON(map[string]interface{}{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(out))
}

func TestCanonicalJSONPreservesDecimalLiterals(t *testing.T) {
	out, err := canonicalJSON(map[string]interface{}{
		"amount": decimal.RequireFromString("734.50"),
	})
	require.NoError(t, err)
	// The literal survives the sort round trip without float drift.
	assert.Equal(t, `{"amount":"734.5"}`, string(out))
}
