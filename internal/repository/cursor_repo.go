package repository

import (
	"context"
	"errors"
	"time"

	"tillsync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorRepository tracks pull watermarks. AdvanceTx takes the page
// transaction so the cursor can never move past records that did not commit.
type CursorRepository interface {
	Get(ctx context.Context, entityType string) (*model.SyncCursor, error)
	List(ctx context.Context) ([]model.SyncCursor, error)
	AdvanceTx(tx *gorm.DB, entityType string, at time.Time, id int64) error
}

type cursorRepo struct{ db *gorm.DB }

func NewCursorRepository(db *gorm.DB) CursorRepository { return &cursorRepo{db: db} }

func (r *cursorRepo) Get(ctx context.Context, entityType string) (*model.SyncCursor, error) {
	var c model.SyncCursor
	err := r.db.WithContext(ctx).First(&c, "entity_type = ?", entityType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Zero cursor: first pull starts from the beginning of time.
		return &model.SyncCursor{EntityType: entityType}, nil
	}
	return &c, err
}

func (r *cursorRepo) List(ctx context.Context) ([]model.SyncCursor, error) {
	var cursors []model.SyncCursor
	err := r.db.WithContext(ctx).Order("entity_type ASC").Find(&cursors).Error
	return cursors, err
}

func (r *cursorRepo) AdvanceTx(tx *gorm.DB, entityType string, at time.Time, id int64) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_synced_at", "last_synced_id", "updated_at"}),
	}).Create(&model.SyncCursor{
		EntityType:   entityType,
		LastSyncedAt: at,
		LastSyncedID: id,
	}).Error
}
