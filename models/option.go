package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Option is a generic key/value settings row. Mutable runtime configuration
// (check-in settings, group visibility maps) lives here instead of in code.
type Option struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetOption returns the stored value for key, or "" when unset.
func GetOption(db *gorm.DB, key string) (string, error) {
	var opt Option
	err := db.Where("`key` = ?", key).First(&opt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return opt.Value, nil
}

// SetOption upserts a key/value pair.
func SetOption(db *gorm.DB, key, value string) error {
	opt := Option{Key: key, Value: value, UpdatedAt: time.Now()}
	res := db.Model(&Option{}).Where("`key` = ?", key).Updates(map[string]interface{}{
		"value":      value,
		"updated_at": opt.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.Create(&opt).Error
	}
	return nil
}
