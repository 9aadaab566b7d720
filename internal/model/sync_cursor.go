package model

import "time"

// Reference entity types kept locally in read-mostly mirrors.
const (
	RefProduct  = "product"
	RefCategory = "category"
	RefBrand    = "brand"
	RefCustomer = "customer"
)

// ReferenceTypes lists every pullable entity type in the order the periodic
// puller walks them.
var ReferenceTypes = []string{RefProduct, RefCategory, RefBrand, RefCustomer}

// SyncCursor is the per-entity-type watermark for incremental pulls.
// It only moves forward, and only inside the same transaction that committed
// the page it points past.
type SyncCursor struct {
	EntityType   string    `gorm:"type:varchar(30);primaryKey"`
	LastSyncedAt time.Time `gorm:"not null"`
	// LastSyncedID breaks ties between records sharing an update timestamp.
	LastSyncedID int64 `gorm:"not null;default:0"`
	UpdatedAt    time.Time
}
