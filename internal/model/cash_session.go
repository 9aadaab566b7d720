package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashSession states. A session is created open; suspended sessions reject
// movements until resumed; closed and transferred are terminal.
const (
	SessionOpen        = "open"
	SessionSuspended   = "suspended"
	SessionClosed      = "closed"
	SessionTransferred = "transferred"
)

// Movement types and reasons.
const (
	MovementDeposit    = "deposit"
	MovementWithdrawal = "withdrawal"
)

const (
	ReasonChangeFund    = "change_fund"
	ReasonCashDrop      = "cash_drop"
	ReasonSupplierPay   = "supplier_payment"
	ReasonExpense       = "expense"
	ReasonCorrection    = "correction"
	ReasonShiftHandover = "shift_handover"
	ReasonOther         = "other"
)

// CashSession tracks one drawer lifecycle. At most one session per point of
// sale may be open at a time; the service enforces this before anything is
// queued.
type CashSession struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionNumber int       `gorm:"not null;index"`
	PointOfSaleID int       `gorm:"not null;index"`
	OpenedBy      uuid.UUID `gorm:"type:uuid;not null"`
	OpenedAt      time.Time `gorm:"not null"`
	OpeningAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status        string          `gorm:"type:varchar(20);not null;default:'open';index"`
	ClosedBy      *uuid.UUID      `gorm:"type:uuid"`
	ClosedAt      *time.Time
	Notes         *string
	UpdatedAt     time.Time

	Movements []CashMovement `gorm:"foreignKey:SessionID"`
}

// CashMovement is an immutable entry in the drawer ledger. Movements are
// never updated or deleted — corrections create inverse entries.
type CashMovement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"type:varchar(15);not null"`
	// Amount is always positive; Type carries the sign.
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reason string          `gorm:"type:varchar(30);not null"`
	// AuthorizedBy is required for withdrawals. The engine only demands a
	// non-empty identifier; PIN checking happens upstream.
	AuthorizedBy *string `gorm:"type:varchar(64)"`
	Description  *string
	Reference    *string `gorm:"type:varchar(64)"`
	CreatedAt    time.Time
}

// SessionSummary is the immutable closure record: produced once by closing a
// session, never recomputed. Difference is signed — positive means surplus,
// negative means shortage; neither is an error.
type SessionSummary struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	SalesCount     int       `gorm:"not null"`
	SalesTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ExpectedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ClosingAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Difference     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time
}
