package models

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// CheckInConfigOptionKey is the options-table key holding the serialized config.
const CheckInConfigOptionKey = "CheckInConfig"

// CheckInConfig is the admin-mutable check-in policy, stored as JSON in the
// options table and read by the check-in service through a cached snapshot.
type CheckInConfig struct {
	Enabled                   bool    `json:"enabled"`
	MinReward                 int64   `json:"min_reward"`
	MaxReward                 int64   `json:"max_reward"`
	VerifyCodeEnabled         bool    `json:"verify_code_enabled"`
	VerifyCode                string  `json:"verify_code"`
	ContinuousBonusEnabled    bool    `json:"continuous_bonus_enabled"`
	ContinuousBonusDays       int     `json:"continuous_bonus_days"`
	ContinuousBonusMultiplier float64 `json:"continuous_bonus_multiplier"`
}

// DefaultCheckInConfig is returned when no config has been saved yet.
func DefaultCheckInConfig() CheckInConfig {
	return CheckInConfig{
		Enabled:                   false,
		MinReward:                 100,
		MaxReward:                 1000,
		VerifyCodeEnabled:         false,
		VerifyCode:                "",
		ContinuousBonusEnabled:    false,
		ContinuousBonusDays:       7,
		ContinuousBonusMultiplier: 1.5,
	}
}

// Validate enforces the config invariants before persisting.
func (c CheckInConfig) Validate() error {
	if c.MinReward < 0 {
		return errors.New("min_reward must not be negative")
	}
	if c.MaxReward < c.MinReward {
		return errors.New("max_reward must not be less than min_reward")
	}
	if c.VerifyCodeEnabled && c.VerifyCode == "" {
		return errors.New("verify_code must be set when verification is enabled")
	}
	if c.ContinuousBonusEnabled {
		if c.ContinuousBonusDays < 2 {
			return errors.New("continuous_bonus_days must be at least 2")
		}
		if c.ContinuousBonusMultiplier < 1 {
			return errors.New("continuous_bonus_multiplier must be at least 1")
		}
	}
	return nil
}

// Public strips fields that must not reach non-admin clients.
func (c CheckInConfig) Public() CheckInConfig {
	c.VerifyCode = ""
	return c
}

// LoadCheckInConfig reads the stored config, falling back to defaults when unset.
func LoadCheckInConfig(db *gorm.DB) (CheckInConfig, error) {
	raw, err := GetOption(db, CheckInConfigOptionKey)
	if err != nil {
		return CheckInConfig{}, err
	}
	if raw == "" {
		return DefaultCheckInConfig(), nil
	}
	var c CheckInConfig
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return CheckInConfig{}, err
	}
	return c, nil
}

// SaveCheckInConfig validates and persists the config.
func SaveCheckInConfig(db *gorm.DB, c CheckInConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return SetOption(db, CheckInConfigOptionKey, string(raw))
}
