package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleCashier    = "cashier"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// User is the local mirror of an operator account. PinHash is a bcrypt hash
// of the supervisor PIN, validated locally so authorization works offline.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	FullName  string    `gorm:"not null"`
	Role      string    `gorm:"type:varchar(20);not null;default:'cashier'"`
	PinHash   string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
