package services

import (
	"math"
	"math/rand"

	"github.com/cppla/quotaboard/models"
)

// CalculateReward draws the daily reward for a check-in. Pure: the only
// source of randomness is the injected rng, so results are re-derivable from
// a seed.
//
// The base value is uniform over [min_reward, max_reward]; when max <= min the
// reward is fixed at min_reward. Once the streak reaches the bonus threshold
// the base value is scaled by the multiplier and rounded to the nearest
// integer quota unit.
func CalculateReward(rng *rand.Rand, cfg models.CheckInConfig, continuousDays int) int64 {
	base := cfg.MinReward
	if cfg.MaxReward > cfg.MinReward {
		base = cfg.MinReward + rng.Int63n(cfg.MaxReward-cfg.MinReward+1)
	}

	if cfg.ContinuousBonusEnabled &&
		cfg.ContinuousBonusDays >= 2 &&
		continuousDays >= cfg.ContinuousBonusDays &&
		cfg.ContinuousBonusMultiplier > 1 {
		return int64(math.Round(float64(base) * cfg.ContinuousBonusMultiplier))
	}
	return base
}
