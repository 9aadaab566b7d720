package repository

import (
	"context"

	"tillsync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository mirrors backend-owned reference data. Upserts fully
// replace the local row (server wins); reads filter tombstones so the UI
// never offers a deleted record.
type CatalogRepository interface {
	DB() *gorm.DB
	// UpsertTx inserts or fully replaces one mirror row. record must be a
	// pointer to one of the catalog models with its backend id set.
	UpsertTx(tx *gorm.DB, record interface{}) error

	SearchProducts(ctx context.Context, query string, limit int) ([]model.Product, error)
	FindProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	FindProductByID(ctx context.Context, id int64) (*model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListBrands(ctx context.Context) ([]model.Brand, error)
	SearchCustomers(ctx context.Context, query string, limit int) ([]model.Customer, error)
}

type catalogRepo struct{ db *gorm.DB }

func NewCatalogRepository(db *gorm.DB) CatalogRepository { return &catalogRepo{db: db} }

func (r *catalogRepo) DB() *gorm.DB { return r.db }

func (r *catalogRepo) UpsertTx(tx *gorm.DB, record interface{}) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error
}

func (r *catalogRepo) SearchProducts(ctx context.Context, query string, limit int) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).Where("deleted = ? AND active = ?", false, true)
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("name LIKE ? OR barcode LIKE ?", like, like)
	}
	err := q.Order("name ASC").Limit(limit).Find(&products).Error
	return products, err
}

func (r *catalogRepo) FindProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("barcode = ? AND deleted = ?", barcode, false).
		First(&p).Error
	return &p, err
}

func (r *catalogRepo) FindProductByID(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *catalogRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Where("deleted = ?", false).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *catalogRepo) ListBrands(ctx context.Context) ([]model.Brand, error) {
	var brands []model.Brand
	err := r.db.WithContext(ctx).Where("deleted = ?", false).Order("name ASC").Find(&brands).Error
	return brands, err
}

func (r *catalogRepo) SearchCustomers(ctx context.Context, query string, limit int) ([]model.Customer, error) {
	var customers []model.Customer
	q := r.db.WithContext(ctx).Where("deleted = ?", false)
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("name LIKE ? OR doc_number LIKE ?", like, like)
	}
	err := q.Order("name ASC").Limit(limit).Find(&customers).Error
	return customers, err
}
