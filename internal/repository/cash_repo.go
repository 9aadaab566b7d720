package repository

import (
	"context"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CashRepository persists drawer sessions, their immutable movement ledger,
// and closure summaries. There is deliberately no UpdateMovement — movements
// are append-only.
type CashRepository interface {
	DB() *gorm.DB
	CreateSessionTx(tx *gorm.DB, s *model.CashSession) error
	UpdateSessionTx(tx *gorm.DB, s *model.CashSession) error
	FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	FindOpenSessionByPOS(ctx context.Context, pointOfSaleID int) (*model.CashSession, error)
	NextSessionNumber(ctx context.Context, pointOfSaleID int) (int, error)
	CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)
	CreateSummaryTx(tx *gorm.DB, s *model.SessionSummary) error
	FindSummaryBySession(ctx context.Context, sessionID uuid.UUID) (*model.SessionSummary, error)
	ListSessions(ctx context.Context, page, limit int) ([]model.CashSession, int64, error)
}

type cashRepo struct{ db *gorm.DB }

func NewCashRepository(db *gorm.DB) CashRepository { return &cashRepo{db: db} }

func (r *cashRepo) DB() *gorm.DB { return r.db }

func (r *cashRepo) CreateSessionTx(tx *gorm.DB, s *model.CashSession) error {
	return tx.Create(s).Error
}

func (r *cashRepo) UpdateSessionTx(tx *gorm.DB, s *model.CashSession) error {
	return tx.Save(s).Error
}

func (r *cashRepo) FindSessionByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *cashRepo) FindOpenSessionByPOS(ctx context.Context, pointOfSaleID int) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("point_of_sale_id = ? AND status IN ?", pointOfSaleID,
			[]string{model.SessionOpen, model.SessionSuspended}).
		First(&s).Error
	return &s, err
}

func (r *cashRepo) NextSessionNumber(ctx context.Context, pointOfSaleID int) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&model.CashSession{}).
		Where("point_of_sale_id = ?", pointOfSaleID).
		Select("COALESCE(MAX(session_number), 0)").
		Scan(&max).Error
	return max + 1, err
}

func (r *cashRepo) CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error {
	return tx.Create(m).Error
}

func (r *cashRepo) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movements []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&movements).Error
	return movements, err
}

func (r *cashRepo) CreateSummaryTx(tx *gorm.DB, s *model.SessionSummary) error {
	return tx.Create(s).Error
}

func (r *cashRepo) FindSummaryBySession(ctx context.Context, sessionID uuid.UUID) (*model.SessionSummary, error) {
	var s model.SessionSummary
	err := r.db.WithContext(ctx).First(&s, "session_id = ?", sessionID).Error
	return &s, err
}

func (r *cashRepo) ListSessions(ctx context.Context, page, limit int) ([]model.CashSession, int64, error) {
	var sessions []model.CashSession
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.CashSession{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Order("opened_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}
