package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Catalog mirrors. The backend owns these records; the terminal never treats
// its copy as write-authoritative. Incoming versions fully replace the local
// row (server wins), and upstream deletions become tombstones (Deleted=true)
// so that sale lines keep a valid reference and stale UI state cannot
// resurrect a removed record.

type Product struct {
	ID              int64  `gorm:"primaryKey"` // backend id
	Name            string `gorm:"not null;index"`
	Barcode         string `gorm:"type:varchar(64);index"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CategoryID      *int64
	BrandID         *int64
	Active          bool      `gorm:"not null;default:true"`
	Deleted         bool      `gorm:"not null;default:false;index"`
	RemoteUpdatedAt time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time
}

type Category struct {
	ID              int64  `gorm:"primaryKey"`
	Name            string `gorm:"not null"`
	ParentID        *int64
	Deleted         bool      `gorm:"not null;default:false;index"`
	RemoteUpdatedAt time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time
}

type Brand struct {
	ID              int64  `gorm:"primaryKey"`
	Name            string `gorm:"not null"`
	Deleted         bool      `gorm:"not null;default:false;index"`
	RemoteUpdatedAt time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time
}

type Customer struct {
	ID              int64  `gorm:"primaryKey"`
	Name            string `gorm:"not null;index"`
	DocNumber       string `gorm:"type:varchar(20);index"`
	Email           string
	Phone           string
	Deleted         bool      `gorm:"not null;default:false;index"`
	RemoteUpdatedAt time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time
}
