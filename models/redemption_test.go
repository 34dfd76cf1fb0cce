package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateRedemptionCodesNormalForcesSingleUse(t *testing.T) {
	db := setupTestDB(t)

	keys, err := CreateRedemptionCodes(db, RedemptionCode{
		Name: "batch", Type: RedemptionTypeNormal, Quota: 500,
		MaxUses: 99, MaxUsesPerUser: 99,
	}, 3)
	assert.NoError(t, err)
	assert.Len(t, keys, 3)

	for _, key := range keys {
		assert.Len(t, key, 32)
		code, err := GetRedemptionByKey(db, key)
		assert.NoError(t, err)
		assert.Equal(t, 1, code.MaxUses)
		assert.Equal(t, 1, code.MaxUsesPerUser)
		assert.Equal(t, RedemptionStatusUnused, code.Status)
		assert.Equal(t, 0, code.UsedCount)
	}
}

func TestCreateRedemptionCodesValidation(t *testing.T) {
	db := setupTestDB(t)

	_, err := CreateRedemptionCodes(db, RedemptionCode{Type: RedemptionTypeNormal, Quota: 100}, 0)
	assert.Error(t, err)

	_, err = CreateRedemptionCodes(db, RedemptionCode{Type: RedemptionTypeNormal, Quota: 0}, 1)
	assert.Error(t, err)

	_, err = CreateRedemptionCodes(db, RedemptionCode{Type: RedemptionTypeGift, Quota: 100, MaxUses: 0, MaxUsesPerUser: 1}, 1)
	assert.Error(t, err)

	_, err = CreateRedemptionCodes(db, RedemptionCode{Type: RedemptionTypeGift, Quota: 100, MaxUses: 5, MaxUsesPerUser: 0}, 1)
	assert.Error(t, err)

	_, err = CreateRedemptionCodes(db, RedemptionCode{Type: 9, Quota: 100}, 1)
	assert.Error(t, err)
}

func TestRedemptionExpired(t *testing.T) {
	now := time.Now().Unix()

	code := RedemptionCode{ExpiredTime: 0}
	assert.False(t, code.Expired(now))

	code.ExpiredTime = now + 60
	assert.False(t, code.Expired(now))

	code.ExpiredTime = now - 60
	assert.True(t, code.Expired(now))
}

func TestUpdateRedemptionStatusRestoresExhausted(t *testing.T) {
	db := setupTestDB(t)
	keys, err := CreateRedemptionCodes(db, RedemptionCode{
		Name: "gift", Type: RedemptionTypeGift, Quota: 100, MaxUses: 2, MaxUsesPerUser: 1,
	}, 1)
	assert.NoError(t, err)

	code, err := GetRedemptionByKey(db, keys[0])
	assert.NoError(t, err)

	assert.NoError(t, UpdateRedemptionStatus(db, code.ID, true))
	code, _ = GetRedemptionByID(db, code.ID)
	assert.Equal(t, RedemptionStatusDisabled, code.Status)

	// Re-enabling a fresh code restores UNUSED.
	assert.NoError(t, UpdateRedemptionStatus(db, code.ID, false))
	code, _ = GetRedemptionByID(db, code.ID)
	assert.Equal(t, RedemptionStatusUnused, code.Status)

	// Exhaust it, disable, re-enable: it must come back USED, not UNUSED.
	db.Model(&RedemptionCode{}).Where("id = ?", code.ID).Update("used_count", 2)
	assert.NoError(t, UpdateRedemptionStatus(db, code.ID, true))
	assert.NoError(t, UpdateRedemptionStatus(db, code.ID, false))
	code, _ = GetRedemptionByID(db, code.ID)
	assert.Equal(t, RedemptionStatusUsed, code.Status)
}

func TestDeleteInvalidRedemptions(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().Unix()

	mk := func(name string, status int, expired int64) {
		keys, err := CreateRedemptionCodes(db, RedemptionCode{
			Name: name, Type: RedemptionTypeNormal, Quota: 100, ExpiredTime: expired,
		}, 1)
		assert.NoError(t, err)
		if status != RedemptionStatusUnused {
			assert.NoError(t, db.Model(&RedemptionCode{}).Where("`key` = ?", keys[0]).Update("status", status).Error)
		}
	}

	mk("live", RedemptionStatusUnused, 0)
	mk("live-future", RedemptionStatusUnused, now+3600)
	mk("used", RedemptionStatusUsed, 0)
	mk("disabled", RedemptionStatusDisabled, 0)
	mk("expired", RedemptionStatusUnused, now-3600)

	deleted, err := DeleteInvalidRedemptions(db, now)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	var remaining int64
	db.Model(&RedemptionCode{}).Count(&remaining)
	assert.Equal(t, int64(2), remaining)
}

func TestDeleteRedemptionsByName(t *testing.T) {
	db := setupTestDB(t)

	_, err := CreateRedemptionCodes(db, RedemptionCode{Name: "promo", Type: RedemptionTypeNormal, Quota: 100}, 3)
	assert.NoError(t, err)
	_, err = CreateRedemptionCodes(db, RedemptionCode{Name: "other", Type: RedemptionTypeNormal, Quota: 100}, 1)
	assert.NoError(t, err)

	deleted, err := DeleteRedemptionsByName(db, "promo")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	_, err = DeleteRedemptionsByName(db, "")
	assert.Error(t, err)

	var remaining int64
	db.Model(&RedemptionCode{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)
}

func TestSearchRedemptions(t *testing.T) {
	db := setupTestDB(t)

	_, err := CreateRedemptionCodes(db, RedemptionCode{Name: "spring", Type: RedemptionTypeNormal, Quota: 100}, 2)
	assert.NoError(t, err)
	_, err = CreateRedemptionCodes(db, RedemptionCode{Name: "summer", Type: RedemptionTypeNormal, Quota: 100}, 1)
	assert.NoError(t, err)

	page := NewPageInfo(1, 10)
	codes, total, err := SearchRedemptions(db, "spring", page)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, codes, 2)

	codes, total, err = SearchRedemptions(db, "1", page)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, uint(1), codes[0].ID)
}

func TestGetRedemptionsGroupedByName(t *testing.T) {
	db := setupTestDB(t)

	_, err := CreateRedemptionCodes(db, RedemptionCode{Name: "alpha", Type: RedemptionTypeNormal, Quota: 100}, 2)
	assert.NoError(t, err)
	_, err = CreateRedemptionCodes(db, RedemptionCode{Name: "beta", Type: RedemptionTypeNormal, Quota: 100}, 3)
	assert.NoError(t, err)

	groups, total, err := GetRedemptionsGroupedByName(db, NewPageInfo(1, 10))
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, groups, 2)
	assert.Equal(t, "alpha", groups[0].Name)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, "beta", groups[1].Name)
	assert.Equal(t, 3, groups[1].Count)
}
