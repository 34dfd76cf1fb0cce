package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/cppla/quotaboard/models"
)

func newTestRedemptionService(t *testing.T) (*RedemptionService, *stepClock, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	clock := newStepClock(testDay)
	svc := NewRedemptionService(db, clock, 5, nil)
	return svc, clock, db
}

func createTestCode(t *testing.T, db *gorm.DB, template models.RedemptionCode) string {
	t.Helper()
	keys, err := models.CreateRedemptionCodes(db, template, 1)
	if err != nil {
		t.Fatalf("failed to create redemption code: %v", err)
	}
	return keys[0]
}

func TestRedeemNormalCode(t *testing.T) {
	svc, _, db := newTestRedemptionService(t)
	createTestUser(t, db, 1, "alice")
	createTestUser(t, db, 2, "bob")
	key := createTestCode(t, db, models.RedemptionCode{
		Name: "welcome", Type: models.RedemptionTypeNormal, Quota: 5000,
	})
	ctx := context.Background()

	result, err := svc.Redeem(ctx, 1, key)
	assert.NoError(t, err)
	assert.Equal(t, int64(5000), result.CreditedQuota)
	assert.Equal(t, 0, result.RemainingUses)
	assert.Equal(t, int64(5000), userQuota(t, db, 1))

	// A normal code is single-use globally, for anyone.
	_, err = svc.Redeem(ctx, 2, key)
	assert.ErrorIs(t, err, ErrCodeExhausted)
	_, err = svc.Redeem(ctx, 1, key)
	assert.ErrorIs(t, err, ErrCodeExhausted)

	code, err := models.GetRedemptionByKey(db, key)
	assert.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusUsed, code.Status)
	assert.Equal(t, 1, code.UsedCount)
}

func TestRedeemNotFound(t *testing.T) {
	svc, _, db := newTestRedemptionService(t)
	createTestUser(t, db, 1, "alice")

	_, err := svc.Redeem(context.Background(), 1, "nosuchkey")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = svc.Redeem(context.Background(), 1, "   ")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestRedeemDisabledCode(t *testing.T) {
	svc, _, db := newTestRedemptionService(t)
	createTestUser(t, db, 1, "alice")
	key := createTestCode(t, db, models.RedemptionCode{
		Name: "paused", Type: models.RedemptionTypeNormal, Quota: 100,
	})

	code, err := models.GetRedemptionByKey(db, key)
	assert.NoError(t, err)
	assert.NoError(t, models.UpdateRedemptionStatus(db, code.ID, true))

	_, err = svc.Redeem(context.Background(), 1, key)
	assert.ErrorIs(t, err, ErrCodeDisabled)
	assert.Equal(t, int64(0), userQuota(t, db, 1))
}

func TestRedeemExpiredCode(t *testing.T) {
	svc, clock, db := newTestRedemptionService(t)
	createTestUser(t, db, 1, "alice")
	key := createTestCode(t, db, models.RedemptionCode{
		Name: "flash-sale", Type: models.RedemptionTypeNormal, Quota: 100,
		ExpiredTime: clock.Now().Add(time.Hour).Unix(),
	})

	// Still valid inside the window.
	info, err := svc.Validate(context.Background(), key)
	assert.NoError(t, err)
	assert.False(t, info.Expired)

	clock.Advance(2 * time.Hour)
	_, err = svc.Redeem(context.Background(), 1, key)
	assert.ErrorIs(t, err, ErrCodeExpired)

	// Expiry is derived from the timestamp, the stored status is untouched.
	code, err := models.GetRedemptionByKey(db, key)
	assert.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusUnused, code.Status)
}

func TestRedeemGiftCodePerUserLimit(t *testing.T) {
	svc, _, db := newTestRedemptionService(t)
	createTestUser(t, db, 1, "alice")
	key := createTestCode(t, db, models.RedemptionCode{
		Name: "party", Type: models.RedemptionTypeGift, Quota: 100,
		MaxUses: 10, MaxUsesPerUser: 2,
	})
	ctx := context.Background()

	_, err := svc.Redeem(ctx, 1, key)
	assert.NoError(t, err)
	_, err = svc.Redeem(ctx, 1, key)
	assert.NoError(t, err)
	_, err = svc.Redeem(ctx, 1, key)
	assert.ErrorIs(t, err, ErrPerUserLimit)

	assert.Equal(t, int64(200), userQuota(t, db, 1))

	var usage models.RedemptionUsage
	assert.NoError(t, db.Where("code_key = ? AND user_id = ?", key, 1).First(&usage).Error)
	assert.Equal(t, 2, usage.UsedCount)
}

func TestRedeemGiftCodeExhaustion(t *testing.T) {
	svc, _, db := newTestRedemptionService(t)
	for i := uint(1); i <= 3; i++ {
		createTestUser(t, db, i, "user")
	}
	key := createTestCode(t, db, models.RedemptionCode{
		Name: "small-batch", Type: models.RedemptionTypeGift, Quota: 100,
		MaxUses: 2, MaxUsesPerUser: 1,
	})
	ctx := context.Background()

	result, err := svc.Redeem(ctx, 1, key)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.RemainingUses)
	result, err = svc.Redeem(ctx, 2, key)
	assert.NoError(t, err)
	assert.Equal(t, 0, result.RemainingUses)

	_, err = svc.Redeem(ctx, 3, key)
	assert.ErrorIs(t, err, ErrCodeExhausted)

	code, err := models.GetRedemptionByKey(db, key)
	assert.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusUsed, code.Status)
	assert.Equal(t, 2, code.UsedCount)
}

func TestRedeemGiftCodeConcurrent(t *testing.T) {
	svc, _, db := newTestRedemptionService(t)
	const redeemers = 20
	const maxUses = 5
	for i := uint(1); i <= redeemers; i++ {
		createTestUser(t, db, i, "racer")
	}
	key := createTestCode(t, db, models.RedemptionCode{
		Name: "drop", Type: models.RedemptionTypeGift, Quota: 100,
		MaxUses: maxUses, MaxUsesPerUser: 1,
	})

	var wg sync.WaitGroup
	results := make([]error, redeemers)
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), uint(i+1), key)
			results[i] = err
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrCodeExhausted)
		}
	}
	assert.Equal(t, maxUses, successes)

	// used_count never overshoots, and total credit matches the winners.
	code, err := models.GetRedemptionByKey(db, key)
	assert.NoError(t, err)
	assert.Equal(t, maxUses, code.UsedCount)
	assert.Equal(t, models.RedemptionStatusUsed, code.Status)

	var totalQuota int64
	db.Model(&models.User{}).Select("COALESCE(SUM(quota), 0)").Scan(&totalQuota)
	assert.Equal(t, int64(maxUses*100), totalQuota)
}

func TestRedeemFailureLeavesNoPartialState(t *testing.T) {
	svc, _, db := newTestRedemptionService(t)
	createTestUser(t, db, 1, "alice")
	key := createTestCode(t, db, models.RedemptionCode{
		Name: "solo", Type: models.RedemptionTypeGift, Quota: 100,
		MaxUses: 1, MaxUsesPerUser: 1,
	})
	ctx := context.Background()

	_, err := svc.Redeem(ctx, 1, key)
	assert.NoError(t, err)
	_, err = svc.Redeem(ctx, 1, key)
	assert.ErrorIs(t, err, ErrCodeExhausted)

	var usageCount, logCount int64
	db.Model(&models.RedemptionUsage{}).Where("code_key = ?", key).Count(&usageCount)
	db.Model(&models.QuotaLog{}).Where("user_id = ? AND type = ?", 1, models.QuotaLogTypeRedeem).Count(&logCount)
	assert.Equal(t, int64(1), usageCount)
	assert.Equal(t, int64(1), logCount)
	assert.Equal(t, int64(100), userQuota(t, db, 1))
}

func TestValidateCode(t *testing.T) {
	svc, _, db := newTestRedemptionService(t)
	key := createTestCode(t, db, models.RedemptionCode{
		Name: "preview", Type: models.RedemptionTypeGift, Quota: 300,
		MaxUses: 4, MaxUsesPerUser: 2,
	})

	info, err := svc.Validate(context.Background(), key)
	assert.NoError(t, err)
	assert.Equal(t, key, info.Key)
	assert.Equal(t, "preview", info.Name)
	assert.Equal(t, models.RedemptionTypeGift, info.Type)
	assert.Equal(t, int64(300), info.Quota)
	assert.Equal(t, 4, info.MaxUses)
	assert.Equal(t, 0, info.UsedCount)
	assert.False(t, info.Expired)

	_, err = svc.Validate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}
