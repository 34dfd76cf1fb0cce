package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the quota balance holder. Accounts are provisioned upstream; this
// service only reads identity and credits quota.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"size:64;not null;index" json:"username"`
	Group     string         `gorm:"size:64;default:default" json:"group"`
	Quota     int64          `gorm:"default:0" json:"quota"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// CreditQuota atomically adds amount to the user's balance inside tx.
// Callers must run it in the same transaction as the ledger write that
// justifies the credit.
func CreditQuota(tx *gorm.DB, userID uint, amount int64) error {
	return tx.Model(&User{}).Where("id = ?", userID).
		Update("quota", gorm.Expr("quota + ?", amount)).Error
}
