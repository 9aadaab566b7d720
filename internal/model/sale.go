package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment tender methods.
const (
	PayCash     = "cash"
	PayDebit    = "debit"
	PayCredit   = "credit"
	PayTransfer = "transfer"
)

// Sale is recorded locally first and pushed to the backend through the
// mutation queue. TicketNumber is a per-terminal sequence so receipts can be
// printed while offline.
type Sale struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TicketNumber int       `gorm:"not null;uniqueIndex"`
	CustomerID   *int64
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time       `gorm:"index"`

	Lines    []SaleLine    `gorm:"foreignKey:SaleID"`
	Payments []SalePayment `gorm:"foreignKey:SaleID"`
}

// SaleLine references the product mirror by backend id. Tombstoned products
// stay in the catalog table precisely so these references remain valid.
type SaleLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID int64     `gorm:"not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

type SalePayment struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	SaleID uuid.UUID `gorm:"type:uuid;not null;index"`
	Method string    `gorm:"type:varchar(15);not null"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
