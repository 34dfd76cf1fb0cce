package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/quotaboard/models"
)

// RedeemResult is the committed outcome of a successful redemption.
type RedeemResult struct {
	CreditedQuota int64 `json:"credited_quota"`
	RemainingUses int   `json:"remaining_uses"`
}

// CodeInfo is the public subset of a code definition, for the console's
// validate-before-redeem view.
type CodeInfo struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	Type           int    `json:"type"`
	Status         int    `json:"status"`
	Quota          int64  `json:"quota"`
	MaxUses        int    `json:"max_uses"`
	MaxUsesPerUser int    `json:"max_uses_per_user"`
	UsedCount      int    `json:"used_count"`
	ExpiredTime    int64  `json:"expired_time"`
	Expired        bool   `json:"expired"`
}

// RedemptionService orchestrates redemption attempts. All counter updates are
// compare-and-increment under the code's row lock, so used_count can never
// overshoot max_uses however many redeemers race.
type RedemptionService struct {
	db         *gorm.DB
	clock      Clock
	maxRetries int
	logger     *zap.SugaredLogger
}

// NewRedemptionService wires the service. logger may be nil in tests.
func NewRedemptionService(db *gorm.DB, clock Clock, maxRetries int, logger *zap.SugaredLogger) *RedemptionService {
	return &RedemptionService{db: db, clock: clock, maxRetries: maxRetries, logger: logger}
}

// Redeem consumes one use of the code for the user and credits its quota.
// The whole operation is one atomic unit; a failed attempt leaves no partial
// state, and retrying a completed day's attempt deterministically returns the
// bound violation it ran into.
func (s *RedemptionService) Redeem(ctx context.Context, userID uint, key string) (*RedeemResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrCodeNotFound
	}
	if userID == 0 {
		return nil, ErrCodeNotFound
	}

	now := s.clock.Now().Unix()

	var result RedeemResult
	err := runInTxWithRetry(ctx, s.db, s.maxRetries, func(tx *gorm.DB) error {
		var code models.RedemptionCode
		err := lockForUpdate(tx).
			Where("`key` = ?", key).First(&code).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		if err != nil {
			return err
		}

		if code.Status == models.RedemptionStatusDisabled {
			return ErrCodeDisabled
		}
		// Expiry is derived from the stored timestamp, never from status.
		if code.Expired(now) {
			return ErrCodeExpired
		}
		if code.Status == models.RedemptionStatusUsed {
			return ErrCodeExhausted
		}
		if code.MaxUses > 0 && code.UsedCount >= code.MaxUses {
			return ErrCodeExhausted
		}

		// Per-user bound. The code row lock serializes every redeemer of this
		// key, so reading and updating the usage row here is race-free.
		var usage models.RedemptionUsage
		haveUsage := true
		err = tx.Where("code_key = ? AND user_id = ?", key, userID).First(&usage).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			haveUsage = false
		} else if err != nil {
			return err
		}
		if code.MaxUsesPerUser > 0 && haveUsage && usage.UsedCount >= code.MaxUsesPerUser {
			return ErrPerUserLimit
		}

		newUsed := code.UsedCount + 1
		status := code.Status
		if code.MaxUses > 0 && newUsed >= code.MaxUses {
			status = models.RedemptionStatusUsed
		}
		if err := tx.Model(&models.RedemptionCode{}).Where("id = ?", code.ID).
			Updates(map[string]interface{}{
				"used_count":    newUsed,
				"status":        status,
				"redeemed_time": now,
			}).Error; err != nil {
			return err
		}

		if haveUsage {
			if err := tx.Model(&models.RedemptionUsage{}).Where("id = ?", usage.ID).
				Updates(map[string]interface{}{
					"used_count":   usage.UsedCount + 1,
					"last_used_at": s.clock.Now(),
				}).Error; err != nil {
				return err
			}
		} else {
			usage = models.RedemptionUsage{
				CodeKey:    key,
				UserID:     userID,
				UsedCount:  1,
				LastUsedAt: s.clock.Now(),
			}
			if err := tx.Create(&usage).Error; err != nil {
				return err
			}
		}

		if err := models.CreditQuota(tx, userID, code.Quota); err != nil {
			return err
		}
		kindName := "redemption code"
		if code.Type == models.RedemptionTypeGift {
			kindName = "gift code"
		}
		if err := models.RecordQuotaLog(tx, userID, models.QuotaLogTypeRedeem, code.Quota,
			fmt.Sprintf("topped up via %s id %d", kindName, code.ID)); err != nil {
			return err
		}

		remaining := 0
		if code.MaxUses > 0 {
			remaining = code.MaxUses - newUsed
		}
		result = RedeemResult{CreditedQuota: code.Quota, RemainingUses: remaining}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Infow("redemption granted",
			"user_id", userID,
			"key", key,
			"quota", result.CreditedQuota,
			"remaining_uses", result.RemainingUses,
		)
	}
	return &result, nil
}

// Validate looks a code up without consuming anything.
func (s *RedemptionService) Validate(ctx context.Context, key string) (*CodeInfo, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrCodeNotFound
	}
	code, err := models.GetRedemptionByKey(s.db.WithContext(ctx), key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return &CodeInfo{
		Key:            code.Key,
		Name:           code.Name,
		Type:           code.Type,
		Status:         code.Status,
		Quota:          code.Quota,
		MaxUses:        code.MaxUses,
		MaxUsesPerUser: code.MaxUsesPerUser,
		UsedCount:      code.UsedCount,
		ExpiredTime:    code.ExpiredTime,
		Expired:        code.Expired(s.clock.Now().Unix()),
	}, nil
}
