package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/quotaboard/middleware"
	"github.com/cppla/quotaboard/models"
	"github.com/cppla/quotaboard/services"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupCheckInRouter(t *testing.T, cfg models.CheckInConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "test.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Option{}, &models.CheckInRecord{}, &models.UserStreakState{},
		&models.RedemptionCode{}, &models.RedemptionUsage{}, &models.QuotaLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	if err := db.Create(&models.User{ID: 1, Username: "alice"}).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if err := models.SaveCheckInConfig(db, cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	clock, err := services.NewZoneClock("UTC")
	if err != nil {
		t.Fatalf("failed to build clock: %v", err)
	}
	provider := services.NewConfigProvider(db, time.Minute)
	service := services.NewCheckInService(db, provider, clock, 3, nil)
	leaderboard := services.NewLeaderboardAggregator(db, nil, time.Minute)
	controller := NewCheckInController(service, leaderboard)

	r := gin.New()
	// Stand-in for the JWT middleware: a fixed authenticated user.
	r.Use(func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, uint(1))
		ctx.Next()
	})
	r.POST("/api/v1/checkin", controller.CheckIn)
	r.GET("/api/v1/checkin/status", controller.Status)
	r.GET("/api/v1/checkin/history", controller.History)
	r.GET("/api/v1/checkin/leaderboard", controller.Leaderboard)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestCheckInEndpoint(t *testing.T) {
	cfg := models.DefaultCheckInConfig()
	cfg.Enabled = true
	r := setupCheckInRouter(t, cfg)

	w, resp := doRequest(r, http.MethodPost, "/api/v1/checkin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)

	var result services.CheckInResult
	assert.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 1, result.ContinuousDays)
	assert.GreaterOrEqual(t, result.Reward, int64(100))

	// Second attempt the same day is rejected with the stable kind.
	w, resp = doRequest(r, http.MethodPost, "/api/v1/checkin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.KindAlreadyCheckedIn, resp.Kind)
	assert.Equal(t, 40030, resp.Code)
}

func TestCheckInEndpointDisabled(t *testing.T) {
	r := setupCheckInRouter(t, models.DefaultCheckInConfig())

	w, resp := doRequest(r, http.MethodPost, "/api/v1/checkin", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, services.KindCheckInDisabled, resp.Kind)
}

func TestCheckInEndpointVerifyCode(t *testing.T) {
	cfg := models.DefaultCheckInConfig()
	cfg.Enabled = true
	cfg.VerifyCodeEnabled = true
	cfg.VerifyCode = "orange"
	r := setupCheckInRouter(t, cfg)

	w, resp := doRequest(r, http.MethodPost, "/api/v1/checkin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.KindVerificationRequired, resp.Kind)

	w, resp = doRequest(r, http.MethodPost, "/api/v1/checkin", `{"verify_code":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.KindVerificationInvalid, resp.Kind)

	w, resp = doRequest(r, http.MethodPost, "/api/v1/checkin", `{"verify_code":"orange"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)
}

func TestStatusEndpoint(t *testing.T) {
	cfg := models.DefaultCheckInConfig()
	cfg.Enabled = true
	r := setupCheckInRouter(t, cfg)

	w, resp := doRequest(r, http.MethodGet, "/api/v1/checkin/status", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var status services.CheckInStatus
	assert.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.False(t, status.CheckedInToday)

	doRequest(r, http.MethodPost, "/api/v1/checkin", "")

	w, resp = doRequest(r, http.MethodGet, "/api/v1/checkin/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.True(t, status.CheckedInToday)
	assert.Equal(t, 1, status.ContinuousDays)
}

func TestLeaderboardEndpoint(t *testing.T) {
	cfg := models.DefaultCheckInConfig()
	cfg.Enabled = true
	r := setupCheckInRouter(t, cfg)

	doRequest(r, http.MethodPost, "/api/v1/checkin", "")

	w, resp := doRequest(r, http.MethodGet, "/api/v1/checkin/leaderboard?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var entries []*services.LeaderboardEntry
	assert.NoError(t, json.Unmarshal(resp.Data, &entries))
	assert.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, 1, entries[0].Rank)
}

func TestHistoryEndpointPaged(t *testing.T) {
	cfg := models.DefaultCheckInConfig()
	cfg.Enabled = true
	r := setupCheckInRouter(t, cfg)

	doRequest(r, http.MethodPost, "/api/v1/checkin", "")

	w, resp := doRequest(r, http.MethodGet, "/api/v1/checkin/history?page=1&page_size=10", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Items []*models.CheckInRecord `json:"items"`
		Total int64                   `json:"total"`
	}
	assert.NoError(t, json.Unmarshal(resp.Data, &payload))
	assert.Equal(t, int64(1), payload.Total)
	assert.Len(t, payload.Items, 1)
}
