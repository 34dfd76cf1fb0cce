package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/quotaboard/models"
)

const leaderboardCacheKey = "quotaboard:checkin:leaderboard"

// LeaderboardEntry is one ranked row of the check-in leaderboard.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	TotalCheckIns  int    `json:"total_checkins"`
	ContinuousDays int    `json:"continuous_days"`
	TotalRewards   int64  `json:"total_rewards"`
	LastCheckDate  string `json:"last_checkin_date"`
}

// Cache is the bounded-staleness cache the aggregator publishes through.
// A nil Cache disables caching.
type Cache interface {
	GetBytes(key string) ([]byte, bool)
	SetJSON(key string, v interface{}, ttl time.Duration)
}

// LeaderboardAggregator derives a ranked view from the streak summaries. It
// never mutates the ledger and takes no locks against writers: the ranking
// reflects state as of the last cache refresh, bounded by the TTL.
type LeaderboardAggregator struct {
	db    *gorm.DB
	cache Cache
	ttl   time.Duration
}

// NewLeaderboardAggregator wires the aggregator; cache may be nil.
func NewLeaderboardAggregator(db *gorm.DB, cache Cache, ttl time.Duration) *LeaderboardAggregator {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LeaderboardAggregator{db: db, cache: cache, ttl: ttl}
}

// TopN returns the top n users ranked by total check-ins, ties broken by
// total rewards, then by user id ascending so the order is a stable total
// order for any fixed ledger snapshot.
func (a *LeaderboardAggregator) TopN(ctx context.Context, n int) ([]*LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}
	if n > 100 {
		n = 100
	}

	if a.cache != nil {
		if b, ok := a.cache.GetBytes(leaderboardCacheKey); ok {
			var cached []*LeaderboardEntry
			if err := json.Unmarshal(b, &cached); err == nil && len(cached) >= n {
				return cached[:n], nil
			}
		}
	}

	entries, err := a.compute(ctx, 100)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.SetJSON(leaderboardCacheKey, entries, a.ttl)
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (a *LeaderboardAggregator) compute(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	type row struct {
		UserID         uint
		Username       string
		TotalCheckIns  int
		ContinuousDays int
		TotalRewards   int64
		LastCheckDate  string
	}

	var rows []row
	err := a.db.WithContext(ctx).
		Model(&models.UserStreakState{}).
		Select("user_streak_states.user_id AS user_id, users.username AS username, "+
			"user_streak_states.total_check_ins AS total_check_ins, "+
			"user_streak_states.continuous_days AS continuous_days, "+
			"user_streak_states.total_rewards AS total_rewards, "+
			"user_streak_states.last_check_date AS last_check_date").
		Joins("LEFT JOIN users ON users.id = user_streak_states.user_id").
		Order("user_streak_states.total_check_ins DESC, user_streak_states.total_rewards DESC, user_streak_states.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, storeUnavailable(err)
	}

	entries := make([]*LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, &LeaderboardEntry{
			Rank:           i + 1,
			UserID:         r.UserID,
			Username:       r.Username,
			TotalCheckIns:  r.TotalCheckIns,
			ContinuousDays: r.ContinuousDays,
			TotalRewards:   r.TotalRewards,
			LastCheckDate:  r.LastCheckDate,
		})
	}
	return entries, nil
}
