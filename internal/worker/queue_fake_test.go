package worker

import (
	"context"
	"time"

	"tillsync/internal/model"
	"tillsync/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memQueue is an in-memory QueueRepository. Slice order is creation order,
// which is exactly what ListPending must return.
type memQueue struct {
	entries []model.QueueEntry
	seq     int64
}

func newMemQueue() *memQueue { return &memQueue{} }

func (q *memQueue) DB() *gorm.DB { return nil }

func (q *memQueue) Create(_ context.Context, _ *gorm.DB, e *model.QueueEntry) error {
	q.seq++
	e.CreatedAt = time.Unix(0, q.seq)
	e.UpdatedAt = e.CreatedAt
	q.entries = append(q.entries, *e)
	return nil
}

func (q *memQueue) FindByID(_ context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	e := q.get(id)
	if e == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *e
	return &copied, nil
}

func (q *memQueue) ListPending(_ context.Context, entityType string, limit int) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for _, e := range q.entries {
		if e.Status != model.QueuePending {
			continue
		}
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (q *memQueue) ListByStatus(_ context.Context, status string, limit int) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for _, e := range q.entries {
		if e.Status == status {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (q *memQueue) CountByStatus(_ context.Context, status string) (int64, error) {
	var n int64
	for _, e := range q.entries {
		if e.Status == status {
			n++
		}
	}
	return n, nil
}

func (q *memQueue) MarkInFlight(_ context.Context, id uuid.UUID) error {
	if e := q.get(id); e != nil && e.Status == model.QueuePending {
		e.Status = model.QueueInFlight
	}
	return nil
}

func (q *memQueue) MarkSynced(_ context.Context, id uuid.UUID) error {
	if e := q.get(id); e != nil && !e.Terminal() {
		e.Status = model.QueueSynced
		e.LastError = nil
		e.NextAttemptAt = nil
		e.UpdatedAt = time.Now()
	}
	return nil
}

func (q *memQueue) MarkFailed(_ context.Context, id uuid.UUID, cause string) error {
	if e := q.get(id); e != nil && !e.Terminal() {
		e.Status = model.QueueFailed
		e.LastError = &cause
		e.NextAttemptAt = nil
	}
	return nil
}

func (q *memQueue) MarkRetry(_ context.Context, id uuid.UUID, cause string, next time.Time) error {
	if e := q.get(id); e != nil && e.Status == model.QueueInFlight {
		e.Status = model.QueuePending
		e.AttemptCount++
		e.LastError = &cause
		e.NextAttemptAt = &next
	}
	return nil
}

func (q *memQueue) Requeue(_ context.Context, id uuid.UUID) error {
	if e := q.get(id); e != nil && (e.Status == model.QueueInFlight || e.Status == model.QueueFailed) {
		e.Status = model.QueuePending
		e.NextAttemptAt = nil
	}
	return nil
}

func (q *memQueue) RetryFailed(_ context.Context, id uuid.UUID) error {
	if e := q.get(id); e != nil && e.Status == model.QueueFailed {
		e.Status = model.QueuePending
		e.AttemptCount = 0
		e.LastError = nil
		e.NextAttemptAt = nil
	}
	return nil
}

func (q *memQueue) RequeueInFlight(_ context.Context) (int64, error) {
	var n int64
	for i := range q.entries {
		if q.entries[i].Status == model.QueueInFlight {
			q.entries[i].Status = model.QueuePending
			n++
		}
	}
	return n, nil
}

func (q *memQueue) PurgeSynced(_ context.Context, before time.Time) (int64, error) {
	kept := q.entries[:0]
	var n int64
	for _, e := range q.entries {
		if e.Status == model.QueueSynced && e.UpdatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return n, nil
}

func (q *memQueue) get(id uuid.UUID) *model.QueueEntry {
	for i := range q.entries {
		if q.entries[i].ID == id {
			return &q.entries[i]
		}
	}
	return nil
}

var _ repository.QueueRepository = (*memQueue)(nil)
