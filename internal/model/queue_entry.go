package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity types carried by the mutation queue. They also define the drain
// dependency chain: a session open must reach the backend before any sale or
// movement that belongs to it, and the close always goes last.
const (
	EntitySale             = "sale"
	EntityCashMovement     = "cash_movement"
	EntityCashSessionOpen  = "cash_session_open"
	EntityCashSessionClose = "cash_session_close"
)

// Queue entry lifecycle.
// pending → in_flight → synced | failed, with in_flight falling back to
// pending on transient errors or on crash recovery.
const (
	QueuePending  = "pending"
	QueueInFlight = "in_flight"
	QueueSynced   = "synced"
	QueueFailed   = "failed"
)

const (
	OpCreate = "create"
	OpUpdate = "update"
)

// QueueEntry is one durable pending write. Rows are the single source of
// truth for the flusher: no drain state is ever held only in memory.
type QueueEntry struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	EntityType     string    `gorm:"type:varchar(30);not null;index:idx_queue_pending,priority:2"`
	Operation      string    `gorm:"type:varchar(10);not null"`
	Payload        []byte    `gorm:"type:blob;not null"`
	IdempotencyKey string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status         string    `gorm:"type:varchar(10);not null;default:'pending';index:idx_queue_pending,priority:1"`
	AttemptCount   int       `gorm:"not null;default:0"`
	LastError      *string
	// NextAttemptAt gates retries after a transient failure. Nil means
	// eligible immediately.
	NextAttemptAt *time.Time
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

// Terminal reports whether no further flush attempt may touch the entry.
func (e *QueueEntry) Terminal() bool {
	return e.Status == QueueSynced || e.Status == QueueFailed
}
