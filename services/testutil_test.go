package services

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/quotaboard/models"
)

// setupTestDB opens a throwaway sqlite database with the same duplicate-key
// translation the production connection uses. File-backed with a busy timeout
// so concurrent transactions queue on the write lock instead of failing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Option{},
		&models.CheckInRecord{},
		&models.UserStreakState{},
		&models.RedemptionCode{},
		&models.RedemptionUsage{},
		&models.QuotaLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, id uint, username string) {
	t.Helper()
	user := models.User{ID: id, Username: username, Group: "default"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %d: %v", id, err)
	}
}

func userQuota(t *testing.T, db *gorm.DB, id uint) int64 {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("failed to load user %d: %v", id, err)
	}
	return user.Quota
}

// stepClock is an advanceable clock shared between the test and the service.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock(t time.Time) *stepClock {
	return &stepClock{t: t}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// newTestProvider persists cfg and returns a provider already serving it.
func newTestProvider(t *testing.T, db *gorm.DB, cfg models.CheckInConfig) *ConfigProvider {
	t.Helper()
	if err := models.SaveCheckInConfig(db, cfg); err != nil {
		t.Fatalf("failed to save check-in config: %v", err)
	}
	return NewConfigProvider(db, time.Minute)
}

func enabledConfig() models.CheckInConfig {
	cfg := models.DefaultCheckInConfig()
	cfg.Enabled = true
	return cfg
}
