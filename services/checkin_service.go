package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/quotaboard/models"
)

// CheckInResult is the committed outcome of a successful check-in. It is
// authoritative: the transaction has already applied when it is returned, so
// clients never need a reconciliation poll.
type CheckInResult struct {
	Reward         int64 `json:"reward"`
	ContinuousDays int   `json:"continuous_days"`
	TotalCheckIns  int   `json:"total_checkins"`
}

// CheckInStatus is the read-only view for the console's status card.
type CheckInStatus struct {
	CheckedInToday bool   `json:"checked_in_today"`
	ContinuousDays int    `json:"continuous_days"`
	TotalCheckIns  int    `json:"total_checkins"`
	LastCheckDate  string `json:"last_check_date"`
	TodayReward    int64  `json:"today_reward"`
}

// CheckInService orchestrates daily check-ins: gating, idempotent ledger
// insert, streak arithmetic, reward draw, and the atomic quota credit.
type CheckInService struct {
	db         *gorm.DB
	config     *ConfigProvider
	clock      Clock
	maxRetries int
	logger     *zap.SugaredLogger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewCheckInService wires the service. logger may be nil in tests.
func NewCheckInService(db *gorm.DB, config *ConfigProvider, clock Clock, maxRetries int, logger *zap.SugaredLogger) *CheckInService {
	return &CheckInService{
		db:         db,
		config:     config,
		clock:      clock,
		maxRetries: maxRetries,
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// drawReward serializes access to the shared rng.
func (s *CheckInService) drawReward(cfg models.CheckInConfig, continuousDays int) int64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return CalculateReward(s.rng, cfg, continuousDays)
}

// CheckIn performs one check-in attempt for today. Exactly one ledger row and
// one quota credit happen per user per calendar day; concurrent or repeated
// calls observe ErrAlreadyCheckedIn with no further mutation.
func (s *CheckInService) CheckIn(ctx context.Context, userID uint, verifyCode string) (*CheckInResult, error) {
	snap, err := s.config.Snapshot()
	if err != nil {
		return nil, err
	}
	cfg := snap.Config

	if !cfg.Enabled {
		return nil, ErrCheckInDisabled
	}
	if cfg.VerifyCodeEnabled {
		if verifyCode == "" {
			return nil, ErrVerificationRequired
		}
		if verifyCode != cfg.VerifyCode {
			return nil, ErrVerificationInvalid
		}
	}

	now := s.clock.Now()
	today := DateOf(now)
	yesterday := DateOf(now.AddDate(0, 0, -1))

	var result CheckInResult
	err = runInTxWithRetry(ctx, s.db, s.maxRetries, func(tx *gorm.DB) error {
		var state models.UserStreakState
		haveState := true
		err := lockForUpdate(tx).
			Where("user_id = ?", userID).First(&state).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			haveState = false
		} else if err != nil {
			return err
		}

		if haveState && state.LastCheckDate == today {
			return ErrAlreadyCheckedIn
		}

		continuous := 1
		if haveState && state.LastCheckDate == yesterday {
			continuous = state.ContinuousDays + 1
		}

		reward := s.drawReward(cfg, continuous)

		record := models.CheckInRecord{
			UserID:        userID,
			CheckDate:     today,
			Reward:        reward,
			StreakAtGrant: continuous,
			CreatedAt:     now,
		}
		// The unique (user_id, check_date) key is the idempotency gate; a
		// concurrent winner turns this insert into a duplicate-key error.
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyCheckedIn
			}
			return err
		}

		state.UserID = userID
		state.ContinuousDays = continuous
		state.LastCheckDate = today
		state.TotalCheckIns++
		state.TotalRewards += reward
		state.UpdatedAt = now
		if haveState {
			if err := tx.Model(&models.UserStreakState{}).Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"continuous_days": state.ContinuousDays,
					"last_check_date": state.LastCheckDate,
					"total_check_ins": state.TotalCheckIns,
					"total_rewards":   state.TotalRewards,
					"updated_at":      state.UpdatedAt,
				}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&state).Error; err != nil {
				return err
			}
		}

		if err := models.CreditQuota(tx, userID, reward); err != nil {
			return err
		}
		if err := models.RecordQuotaLog(tx, userID, models.QuotaLogTypeCheckIn, reward,
			fmt.Sprintf("daily check-in reward, streak %d", continuous)); err != nil {
			return err
		}

		result = CheckInResult{
			Reward:         reward,
			ContinuousDays: continuous,
			TotalCheckIns:  state.TotalCheckIns,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Infow("check-in granted",
			"user_id", userID,
			"date", today,
			"reward", result.Reward,
			"continuous_days", result.ContinuousDays,
			"config_version", snap.Version,
		)
	}
	return &result, nil
}

// Status returns the user's current streak view. ContinuousDays reads zero
// once a full calendar day has been missed, even before the next check-in
// resets the stored counter.
func (s *CheckInService) Status(ctx context.Context, userID uint) (*CheckInStatus, error) {
	now := s.clock.Now()
	today := DateOf(now)
	yesterday := DateOf(now.AddDate(0, 0, -1))

	state, err := models.GetStreakState(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	if state == nil {
		return &CheckInStatus{}, nil
	}

	status := &CheckInStatus{
		CheckedInToday: state.LastCheckDate == today,
		TotalCheckIns:  state.TotalCheckIns,
		LastCheckDate:  state.LastCheckDate,
	}
	if state.LastCheckDate == today || state.LastCheckDate == yesterday {
		status.ContinuousDays = state.ContinuousDays
	}
	if status.CheckedInToday {
		record, err := models.GetCheckInForDate(s.db.WithContext(ctx), userID, today)
		if err != nil {
			return nil, storeUnavailable(err)
		}
		if record != nil {
			status.TodayReward = record.Reward
		}
	}
	return status, nil
}

// History returns one month of records for calendar rendering.
func (s *CheckInService) History(ctx context.Context, userID uint, year, month int) ([]*models.CheckInRecord, error) {
	loc := s.clock.Now().Location()
	records, err := models.GetCheckInHistory(s.db.WithContext(ctx), userID, year, month, loc)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return records, nil
}

// HistoryPage returns the user's records newest first for tabular display.
func (s *CheckInService) HistoryPage(ctx context.Context, userID uint, page *models.PageInfo) ([]*models.CheckInRecord, int64, error) {
	records, total, err := models.GetCheckInHistoryPage(s.db.WithContext(ctx), userID, page)
	if err != nil {
		return nil, 0, storeUnavailable(err)
	}
	return records, total, nil
}

// AllCheckIns returns every ledger row for the admin table.
func (s *CheckInService) AllCheckIns(ctx context.Context, page *models.PageInfo) ([]*models.CheckInRecord, int64, error) {
	records, total, err := models.GetAllCheckIns(s.db.WithContext(ctx), page)
	if err != nil {
		return nil, 0, storeUnavailable(err)
	}
	return records, total, nil
}
