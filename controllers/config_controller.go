package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/quotaboard/models"
	"github.com/cppla/quotaboard/services"
	"github.com/cppla/quotaboard/utils"
)

// ConfigController serves the admin-mutable runtime settings: the check-in
// policy and the group visibility map.
type ConfigController struct {
	db       *gorm.DB
	provider *services.ConfigProvider
}

// NewConfigController creates a new controller instance.
func NewConfigController(db *gorm.DB, provider *services.ConfigProvider) *ConfigController {
	return &ConfigController{db: db, provider: provider}
}

// GetCheckInConfig returns the current policy with the verification code
// value redacted; clients only learn whether a code is required.
func (c *ConfigController) GetCheckInConfig(ctx *gin.Context) {
	snap, err := c.provider.Snapshot()
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, snap.Config.Public())
}

// UpdateCheckInConfig validates and persists a new policy (admin).
func (c *ConfigController) UpdateCheckInConfig(ctx *gin.Context) {
	var cfg models.CheckInConfig
	if err := ctx.ShouldBindJSON(&cfg); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request body")
		return
	}
	if err := cfg.Validate(); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, err.Error())
		return
	}
	if err := c.provider.Update(cfg); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "config updated"})
}

// GetGroupMap returns the group visibility map and the known group set.
func (c *ConfigController) GetGroupMap(ctx *gin.Context) {
	m, err := models.LoadGroupVisibilityMap(c.db)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50311, "failed to load group map")
		return
	}
	groups, err := models.KnownGroups(c.db)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50311, "failed to load groups")
		return
	}
	utils.Success(ctx, gin.H{"map": m, "groups": groups})
}

// UpdateGroupMap validates keys against existing groups before persisting.
func (c *ConfigController) UpdateGroupMap(ctx *gin.Context) {
	var m models.GroupVisibilityMap
	if err := ctx.ShouldBindJSON(&m); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request body")
		return
	}
	groups, err := models.KnownGroups(c.db)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50311, "failed to load groups")
		return
	}
	if err := models.SaveGroupVisibilityMap(c.db, m, groups); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"message": "group map updated"})
}
