package worker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"tillsync/internal/model"
	"tillsync/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dispatcher is the single entry point into the mutation queue. Enqueue is a
// durable local write — it never touches the network, so write paths keep
// working while the backend is down.
type Dispatcher struct {
	queue    repository.QueueRepository
	deviceID string
}

func NewDispatcher(queue repository.QueueRepository, deviceID string) *Dispatcher {
	return &Dispatcher{queue: queue, deviceID: deviceID}
}

// Enqueue serializes payload canonically, derives the idempotency key, and
// appends a pending entry. Pass the caller's transaction so a business row
// and its queue entry commit atomically; tx may be nil outside a transaction.
func (d *Dispatcher) Enqueue(ctx context.Context, tx *gorm.DB, entityType, operation string, payload interface{}) (*model.QueueEntry, error) {
	body, err := canonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", entityType, err)
	}

	entry := &model.QueueEntry{
		ID:             uuid.New(),
		EntityType:     entityType,
		Operation:      operation,
		Payload:        body,
		IdempotencyKey: d.idempotencyKey(entityType, body),
		Status:         model.QueuePending,
	}
	if err := d.queue.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", entityType, err)
	}
	return entry, nil
}

// idempotencyKey hashes the canonical payload together with the device id.
// The same logical mutation always produces the same key, so a re-send after
// a timeout is detected and ignored server-side.
func (d *Dispatcher) idempotencyKey(entityType string, canonical []byte) string {
	h := sha256.New()
	h.Write([]byte(d.deviceID))
	h.Write([]byte{'|'})
	h.Write([]byte(entityType))
	h.Write([]byte{'|'})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON re-encodes v with object keys sorted, so key derivation does
// not depend on struct field order. UseNumber keeps numeric literals intact
// through the round trip.
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
