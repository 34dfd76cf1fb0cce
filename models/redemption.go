package models

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Redemption code types.
const (
	RedemptionTypeNormal = 1 // single global use
	RedemptionTypeGift   = 2 // bounded multi-use with a per-user cap
)

// Redemption code statuses. Expiry is a derived predicate, not a status.
const (
	RedemptionStatusUnused   = 1
	RedemptionStatusDisabled = 2
	RedemptionStatusUsed     = 3
)

// RedemptionCode is a token that credits quota when consumed.
type RedemptionCode struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Key            string         `gorm:"type:char(32);uniqueIndex" json:"key"`
	Name           string         `gorm:"size:128;index" json:"name"`
	Type           int            `gorm:"default:1" json:"type"`
	Status         int            `gorm:"default:1" json:"status"`
	Quota          int64          `gorm:"default:100" json:"quota"`
	MaxUses        int            `gorm:"default:1" json:"max_uses"`
	MaxUsesPerUser int            `gorm:"default:1" json:"max_uses_per_user"`
	UsedCount      int            `gorm:"default:0" json:"used_count"`
	RedeemedTime   int64          `json:"redeemed_time"`
	ExpiredTime    int64          `json:"expired_time"` // unix seconds, 0 = never expires
	CreatedTime    int64          `json:"created_time"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// RedemptionUsage is the per-code per-user counter row. The composite unique
// key makes used_count_by_user a real bounded counter rather than a log scan.
type RedemptionUsage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CodeKey    string    `gorm:"type:char(32);not null;uniqueIndex:uk_usage_code_user" json:"code_key"`
	UserID     uint      `gorm:"not null;uniqueIndex:uk_usage_code_user" json:"user_id"`
	UsedCount  int       `gorm:"default:0" json:"used_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Expired reports whether the code's expiry has passed as of now (unix seconds).
func (c *RedemptionCode) Expired(now int64) bool {
	return c.ExpiredTime != 0 && c.ExpiredTime < now
}

// RemainingUses returns how many redemptions the code can still accept.
func (c *RedemptionCode) RemainingUses() int {
	if c.MaxUses <= 0 {
		return 0
	}
	remaining := c.MaxUses - c.UsedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CreateRedemptionCodes inserts count codes sharing one definition, each with
// a fresh uuid-derived key. Returns the created keys.
func CreateRedemptionCodes(db *gorm.DB, template RedemptionCode, count int) ([]string, error) {
	if count <= 0 {
		return nil, errors.New("count must be positive")
	}
	if template.Quota <= 0 {
		return nil, errors.New("quota must be positive")
	}
	switch template.Type {
	case RedemptionTypeNormal:
		template.MaxUses = 1
		template.MaxUsesPerUser = 1
	case RedemptionTypeGift:
		if template.MaxUses <= 0 {
			return nil, errors.New("max_uses must be positive for gift codes")
		}
		if template.MaxUsesPerUser <= 0 {
			return nil, errors.New("max_uses_per_user must be positive for gift codes")
		}
	default:
		return nil, errors.New("unknown redemption code type")
	}

	now := time.Now().Unix()
	keys := make([]string, 0, count)
	codes := make([]*RedemptionCode, 0, count)
	for i := 0; i < count; i++ {
		code := template
		code.ID = 0
		code.Key = strings.ReplaceAll(uuid.New().String(), "-", "")
		code.Status = RedemptionStatusUnused
		code.UsedCount = 0
		code.RedeemedTime = 0
		code.CreatedTime = now
		codes = append(codes, &code)
		keys = append(keys, code.Key)
	}
	if err := db.Create(&codes).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// GetRedemptionByID loads one code for the admin detail view.
func GetRedemptionByID(db *gorm.DB, id uint) (*RedemptionCode, error) {
	if id == 0 {
		return nil, errors.New("id must not be zero")
	}
	var code RedemptionCode
	if err := db.First(&code, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// GetRedemptionByKey loads one code by its redeem key.
func GetRedemptionByKey(db *gorm.DB, key string) (*RedemptionCode, error) {
	var code RedemptionCode
	if err := db.Where("`key` = ?", key).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// GetAllRedemptions returns codes newest first (admin listing).
func GetAllRedemptions(db *gorm.DB, page *PageInfo) ([]*RedemptionCode, int64, error) {
	var codes []*RedemptionCode
	var total int64

	if err := db.Model(&RedemptionCode{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("id DESC").
		Limit(page.GetPageSize()).
		Offset(page.GetStartIdx()).
		Find(&codes).Error
	return codes, total, err
}

// SearchRedemptions filters by id (when the keyword is numeric) or name prefix.
func SearchRedemptions(db *gorm.DB, keyword string, page *PageInfo) ([]*RedemptionCode, int64, error) {
	var codes []*RedemptionCode
	var total int64

	q := db.Model(&RedemptionCode{})
	if id, err := strconv.Atoi(keyword); err == nil {
		q = q.Where("id = ? OR name LIKE ?", id, keyword+"%")
	} else {
		q = q.Where("name LIKE ?", keyword+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").
		Limit(page.GetPageSize()).
		Offset(page.GetStartIdx()).
		Find(&codes).Error
	return codes, total, err
}

// RedemptionGroup is one name-grouped batch in the admin listing.
type RedemptionGroup struct {
	Name        string            `json:"name"`
	Redemptions []*RedemptionCode `json:"redemptions"`
	Count       int               `json:"count"`
}

// GetRedemptionsGroupedByName pages over distinct batch names and returns the
// codes belonging to each name on the current page.
func GetRedemptionsGroupedByName(db *gorm.DB, page *PageInfo) ([]*RedemptionGroup, int64, error) {
	var names []string
	err := db.Model(&RedemptionCode{}).
		Distinct("name").
		Where("name != ''").
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(names))
	start := page.GetStartIdx()
	end := start + page.GetPageSize()
	if start > len(names) {
		start = len(names)
	}
	if end > len(names) {
		end = len(names)
	}

	groups := make([]*RedemptionGroup, 0, end-start)
	for _, name := range names[start:end] {
		var codes []*RedemptionCode
		if err := db.Where("name = ?", name).Order("id DESC").Find(&codes).Error; err != nil {
			return nil, 0, err
		}
		groups = append(groups, &RedemptionGroup{Name: name, Redemptions: codes, Count: len(codes)})
	}
	return groups, total, nil
}

// UpdateRedemptionStatus flips a code between DISABLED and its live status.
// Re-enabling a code whose uses are exhausted restores USED, not UNUSED.
func UpdateRedemptionStatus(db *gorm.DB, id uint, disabled bool) error {
	code, err := GetRedemptionByID(db, id)
	if err != nil {
		return err
	}
	var status int
	if disabled {
		status = RedemptionStatusDisabled
	} else if code.MaxUses > 0 && code.UsedCount >= code.MaxUses {
		status = RedemptionStatusUsed
	} else {
		status = RedemptionStatusUnused
	}
	return db.Model(&RedemptionCode{}).Where("id = ?", id).Update("status", status).Error
}

// UpdateRedemption overwrites the admin-editable fields of a code.
func UpdateRedemption(db *gorm.DB, code *RedemptionCode) error {
	return db.Model(code).
		Select("name", "quota", "expired_time", "max_uses", "max_uses_per_user").
		Updates(code).Error
}

// DeleteRedemptionByID soft-deletes one code.
func DeleteRedemptionByID(db *gorm.DB, id uint) error {
	code, err := GetRedemptionByID(db, id)
	if err != nil {
		return err
	}
	return db.Delete(code).Error
}

// DeleteRedemptionsByName soft-deletes a whole named batch.
func DeleteRedemptionsByName(db *gorm.DB, name string) (int64, error) {
	if name == "" {
		return 0, errors.New("name must not be empty")
	}
	res := db.Where("name = ?", name).Delete(&RedemptionCode{})
	return res.RowsAffected, res.Error
}

// DeleteInvalidRedemptions sweeps used, disabled, and expired codes.
func DeleteInvalidRedemptions(db *gorm.DB, now int64) (int64, error) {
	res := db.Where("status IN ? OR (status = ? AND expired_time != 0 AND expired_time < ?)",
		[]int{RedemptionStatusUsed, RedemptionStatusDisabled},
		RedemptionStatusUnused, now).
		Delete(&RedemptionCode{})
	return res.RowsAffected, res.Error
}
