package repository

import (
	"context"
	"time"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueRepository persists the offline mutation queue. After creation the
// only mutators are the Mark* methods; all of them are idempotent so a crash
// between a backend ACK and the local commit cannot wedge an entry.
type QueueRepository interface {
	DB() *gorm.DB
	Create(ctx context.Context, tx *gorm.DB, e *model.QueueEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error)
	// ListPending returns pending entries oldest-first. Empty entityType
	// means all types; the caller gets a restartable drain because ordering
	// comes from the rows, never from in-memory iterator state.
	ListPending(ctx context.Context, entityType string, limit int) ([]model.QueueEntry, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]model.QueueEntry, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	MarkInFlight(ctx context.Context, id uuid.UUID) error
	MarkSynced(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
	MarkRetry(ctx context.Context, id uuid.UUID, cause string, nextAttempt time.Time) error
	// Requeue returns an in_flight entry to pending without consuming an
	// attempt (crash recovery, circuit-breaker races, manual retry).
	Requeue(ctx context.Context, id uuid.UUID) error
	RequeueInFlight(ctx context.Context) (int64, error)
	// RetryFailed returns a failed entry to pending with a fresh attempt
	// budget (operator-initiated retry).
	RetryFailed(ctx context.Context, id uuid.UUID) error
	// PurgeSynced deletes synced entries older than the retention cutoff.
	// Pending and in_flight rows are never purged.
	PurgeSynced(ctx context.Context, before time.Time) (int64, error)
}

type queueRepo struct{ db *gorm.DB }

func NewQueueRepository(db *gorm.DB) QueueRepository { return &queueRepo{db: db} }

func (r *queueRepo) DB() *gorm.DB { return r.db }

func (r *queueRepo) Create(ctx context.Context, tx *gorm.DB, e *model.QueueEntry) error {
	if tx == nil {
		tx = r.db.WithContext(ctx)
	}
	return tx.Create(e).Error
}

func (r *queueRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	var e model.QueueEntry
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *queueRepo) ListPending(ctx context.Context, entityType string, limit int) ([]model.QueueEntry, error) {
	q := r.db.WithContext(ctx).Where("status = ?", model.QueuePending)
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	var entries []model.QueueEntry
	err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *queueRepo) ListByStatus(ctx context.Context, status string, limit int) ([]model.QueueEntry, error) {
	var entries []model.QueueEntry
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *queueRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.QueueEntry{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *queueRepo) MarkInFlight(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("id = ? AND status = ?", id, model.QueuePending).
		Update("status", model.QueueInFlight).Error
}

func (r *queueRepo) MarkSynced(ctx context.Context, id uuid.UUID) error {
	// Guarded by status so re-marking a terminal entry is a no-op.
	return r.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("id = ? AND status IN ?", id, []string{model.QueuePending, model.QueueInFlight}).
		Updates(map[string]interface{}{
			"status":          model.QueueSynced,
			"last_error":      nil,
			"next_attempt_at": nil,
		}).Error
}

func (r *queueRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	return r.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("id = ? AND status IN ?", id, []string{model.QueuePending, model.QueueInFlight}).
		Updates(map[string]interface{}{
			"status":          model.QueueFailed,
			"last_error":      cause,
			"next_attempt_at": nil,
		}).Error
}

func (r *queueRepo) MarkRetry(ctx context.Context, id uuid.UUID, cause string, nextAttempt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("id = ? AND status = ?", id, model.QueueInFlight).
		Updates(map[string]interface{}{
			"status":          model.QueuePending,
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_error":      cause,
			"next_attempt_at": nextAttempt,
		}).Error
}

func (r *queueRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("id = ? AND status IN ?", id, []string{model.QueueInFlight, model.QueueFailed}).
		Updates(map[string]interface{}{
			"status":          model.QueuePending,
			"next_attempt_at": nil,
		}).Error
}

func (r *queueRepo) RetryFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("id = ? AND status = ?", id, model.QueueFailed).
		Updates(map[string]interface{}{
			"status":          model.QueuePending,
			"attempt_count":   0,
			"last_error":      nil,
			"next_attempt_at": nil,
		}).Error
}

func (r *queueRepo) RequeueInFlight(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.QueueEntry{}).
		Where("status = ?", model.QueueInFlight).
		Update("status", model.QueuePending)
	return res.RowsAffected, res.Error
}

func (r *queueRepo) PurgeSynced(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.QueueSynced, before).
		Delete(&model.QueueEntry{})
	return res.RowsAffected, res.Error
}
