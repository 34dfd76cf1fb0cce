package models

import (
	"time"

	"gorm.io/gorm"
)

// Quota log types.
const (
	QuotaLogTypeCheckIn = 1
	QuotaLogTypeRedeem  = 2
)

// QuotaLog is the audit trail of quota grants. One row is written in the same
// transaction as every credit, so the balance is always reconcilable against
// the log.
type QuotaLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      int       `gorm:"index" json:"type"`
	Amount    int64     `json:"amount"`
	Content   string    `gorm:"size:255" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordQuotaLog appends an audit row inside tx.
func RecordQuotaLog(tx *gorm.DB, userID uint, logType int, amount int64, content string) error {
	return tx.Create(&QuotaLog{
		UserID:    userID,
		Type:      logType,
		Amount:    amount,
		Content:   content,
		CreatedAt: time.Now(),
	}).Error
}
