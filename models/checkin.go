package models

import (
	"time"

	"gorm.io/gorm"
)

// CheckInRecord is one immutable ledger row per (user, calendar day).
// CheckDate is stored as YYYY-MM-DD in the configured reset timezone; the
// composite unique index is the idempotency gate for the daily grant.
type CheckInRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:uk_checkin_user_date" json:"user_id"`
	CheckDate     string    `gorm:"size:10;not null;uniqueIndex:uk_checkin_user_date;index" json:"check_date"`
	Reward        int64     `json:"reward"`
	StreakAtGrant int       `json:"streak_at_grant"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserStreakState is the per-user rolling streak summary, mutated only in the
// same transaction as a CheckInRecord insert.
type UserStreakState struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	UserID         uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	ContinuousDays int       `json:"continuous_days"`
	LastCheckDate  string    `gorm:"size:10" json:"last_check_date"`
	TotalCheckIns  int       `json:"total_checkins"`
	TotalRewards   int64     `json:"total_rewards"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GetStreakState returns the user's streak summary, or nil when the user has
// never checked in.
func GetStreakState(db *gorm.DB, userID uint) (*UserStreakState, error) {
	var state UserStreakState
	err := db.Where("user_id = ?", userID).First(&state).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetCheckInForDate returns the user's record for one calendar date, or nil.
func GetCheckInForDate(db *gorm.DB, userID uint, date string) (*CheckInRecord, error) {
	var record CheckInRecord
	err := db.Where("user_id = ? AND check_date = ?", userID, date).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetCheckInHistory returns the user's records for one month, ordered by date,
// for calendar rendering.
func GetCheckInHistory(db *gorm.DB, userID uint, year int, month int, loc *time.Location) ([]*CheckInRecord, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0)

	var records []*CheckInRecord
	err := db.Where("user_id = ? AND check_date >= ? AND check_date < ?",
		userID, start.Format("2006-01-02"), end.Format("2006-01-02")).
		Order("check_date ASC").
		Find(&records).Error
	return records, err
}

// GetCheckInHistoryPage returns the user's records newest first, for tabular display.
func GetCheckInHistoryPage(db *gorm.DB, userID uint, page *PageInfo) ([]*CheckInRecord, int64, error) {
	var records []*CheckInRecord
	var total int64

	q := db.Model(&CheckInRecord{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("check_date DESC").
		Limit(page.GetPageSize()).
		Offset(page.GetStartIdx()).
		Find(&records).Error
	return records, total, err
}

// GetAllCheckIns returns every ledger row, newest first (admin view).
func GetAllCheckIns(db *gorm.DB, page *PageInfo) ([]*CheckInRecord, int64, error) {
	var records []*CheckInRecord
	var total int64

	if err := db.Model(&CheckInRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("id DESC").
		Limit(page.GetPageSize()).
		Offset(page.GetStartIdx()).
		Find(&records).Error
	return records, total, err
}
