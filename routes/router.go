package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/quotaboard/config"
	"github.com/cppla/quotaboard/controllers"
	"github.com/cppla/quotaboard/middleware"
	"github.com/cppla/quotaboard/services"
	"github.com/cppla/quotaboard/utils"
)

// SetupRouter wires routes, middlewares, controllers, and services.
func SetupRouter(db *gorm.DB, clock services.Clock) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	configProvider := services.NewConfigProvider(db, time.Duration(cfg.ConfigStalenessSec)*time.Second)
	checkInService := services.NewCheckInService(db, configProvider, clock, cfg.TxMaxRetries, utils.Sugar)
	leaderboard := services.NewLeaderboardAggregator(db, utils.RedisCache{}, time.Duration(cfg.LeaderboardCacheTTLSec)*time.Second)
	redemptionService := services.NewRedemptionService(db, clock, cfg.TxMaxRetries, utils.Sugar)

	checkInController := controllers.NewCheckInController(checkInService, leaderboard)
	configController := controllers.NewConfigController(db, configProvider)
	redemptionController := controllers.NewRedemptionController(db, redemptionService)

	api := r.Group("/api/v1")

	authed := api.Group("")
	authed.Use(middleware.AuthRequired())

	checkin := authed.Group("/checkin")
	checkin.GET("/config", configController.GetCheckInConfig)
	checkin.GET("/status", checkInController.Status)
	checkin.GET("/history", checkInController.History)
	checkin.GET("/leaderboard", checkInController.Leaderboard)
	checkin.POST("", middleware.RateLimitMiddleware(), checkInController.CheckIn)

	redemptions := authed.Group("/redemptions")
	redemptions.GET("/validate", redemptionController.Validate)
	redemptions.POST("/redeem", middleware.RateLimitMiddleware(), redemptionController.Redeem)

	admin := authed.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.PUT("/checkin/config", configController.UpdateCheckInConfig)
	admin.GET("/checkins", checkInController.AllCheckIns)
	admin.GET("/group-map", configController.GetGroupMap)
	admin.PUT("/group-map", configController.UpdateGroupMap)
	admin.POST("/redemptions", redemptionController.CreateCodes)
	admin.GET("/redemptions", redemptionController.List)
	admin.GET("/redemptions/:id", redemptionController.Get)
	admin.PUT("/redemptions/:id", redemptionController.Update)
	admin.PATCH("/redemptions/:id/status", redemptionController.SetStatus)
	admin.DELETE("/redemptions/:id", redemptionController.Delete)
	admin.DELETE("/redemptions", redemptionController.DeleteByName)
	admin.POST("/redemptions/purge-invalid", redemptionController.PurgeInvalid)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
