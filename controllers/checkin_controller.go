package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quotaboard/models"
	"github.com/cppla/quotaboard/services"
	"github.com/cppla/quotaboard/utils"
)

// CheckInController handles daily check-in endpoints.
type CheckInController struct {
	service     *services.CheckInService
	leaderboard *services.LeaderboardAggregator
}

// NewCheckInController creates a new controller instance.
func NewCheckInController(service *services.CheckInService, leaderboard *services.LeaderboardAggregator) *CheckInController {
	return &CheckInController{service: service, leaderboard: leaderboard}
}

type checkInRequest struct {
	VerifyCode string `json:"verify_code"`
}

// CheckIn records today's check-in and returns the committed result.
func (c *CheckInController) CheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req checkInRequest
	// Body is optional when no verification code is configured.
	_ = ctx.ShouldBindJSON(&req)

	result, err := c.service.CheckIn(ctx.Request.Context(), userID, req.VerifyCode)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// Status returns the user's streak and today's reward if already granted.
func (c *CheckInController) Status(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	status, err := c.service.Status(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, status)
}

// History serves both the calendar view (?year&month) and the table view
// (?page&page_size).
func (c *CheckInController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if ctx.Query("page") != "" || ctx.Query("page_size") != "" {
		page, _ := strconv.Atoi(ctx.Query("page"))
		pageSize, _ := strconv.Atoi(ctx.Query("page_size"))
		records, total, err := c.service.HistoryPage(ctx.Request.Context(), userID, models.NewPageInfo(page, pageSize))
		if err != nil {
			respondServiceError(ctx, err)
			return
		}
		utils.Success(ctx, gin.H{"items": records, "total": total})
		return
	}

	now := time.Now()
	year, err := strconv.Atoi(ctx.Query("year"))
	if err != nil || year < 2020 || year > 2100 {
		year = now.Year()
	}
	month, err := strconv.Atoi(ctx.Query("month"))
	if err != nil || month < 1 || month > 12 {
		month = int(now.Month())
	}

	records, svcErr := c.service.History(ctx.Request.Context(), userID, year, month)
	if svcErr != nil {
		respondServiceError(ctx, svcErr)
		return
	}
	utils.Success(ctx, records)
}

// Leaderboard returns the ranked check-in view. Staleness is bounded by the
// aggregator's cache TTL.
func (c *CheckInController) Leaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	entries, err := c.leaderboard.TopN(ctx.Request.Context(), limit)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, entries)
}

// AllCheckIns lists every ledger row for administrators.
func (c *CheckInController) AllCheckIns(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.Query("page"))
	pageSize, _ := strconv.Atoi(ctx.Query("page_size"))

	records, total, err := c.service.AllCheckIns(ctx.Request.Context(), models.NewPageInfo(page, pageSize))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": records, "total": total})
}
