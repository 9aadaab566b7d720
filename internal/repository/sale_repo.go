package repository

import (
	"context"

	"tillsync/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRepository persists locally recorded sales. Payment sums are computed
// in Go over decimal values — SQLite would coerce SUM() through floats.
type SaleRepository interface {
	DB() *gorm.DB
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	NextTicketNumber(ctx context.Context, tx *gorm.DB) (int, error)
	ListPaymentsBySession(ctx context.Context, sessionID uuid.UUID) ([]model.SalePayment, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Sale, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Payments").
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *saleRepo) NextTicketNumber(ctx context.Context, tx *gorm.DB) (int, error) {
	if tx == nil {
		tx = r.db.WithContext(ctx)
	}
	var max int
	err := tx.Model(&model.Sale{}).
		Select("COALESCE(MAX(ticket_number), 0)").
		Scan(&max).Error
	return max + 1, err
}

func (r *saleRepo) ListPaymentsBySession(ctx context.Context, sessionID uuid.UUID) ([]model.SalePayment, error) {
	var payments []model.SalePayment
	err := r.db.WithContext(ctx).
		Joins("JOIN sales ON sales.id = sale_payments.sale_id").
		Where("sales.session_id = ?", sessionID).
		Find(&payments).Error
	return payments, err
}

func (r *saleRepo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error
	return int(n), err
}

func (r *saleRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}
