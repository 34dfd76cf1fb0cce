package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/quotaboard/models"
	"github.com/cppla/quotaboard/services"
	"github.com/cppla/quotaboard/utils"
)

// RedemptionController handles user-facing redemption endpoints and the
// admin code-management surface.
type RedemptionController struct {
	db      *gorm.DB
	service *services.RedemptionService
}

// NewRedemptionController creates a new controller instance.
func NewRedemptionController(db *gorm.DB, service *services.RedemptionService) *RedemptionController {
	return &RedemptionController{db: db, service: service}
}

type redeemRequest struct {
	Key string `json:"key" binding:"required"`
}

// Redeem consumes a code for the authenticated user.
func (r *RedemptionController) Redeem(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req redeemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "redemption key required")
		return
	}

	result, err := r.service.Redeem(ctx.Request.Context(), userID, req.Key)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// Validate looks a code up without consuming it.
func (r *RedemptionController) Validate(ctx *gin.Context) {
	info, err := r.service.Validate(ctx.Request.Context(), ctx.Query("key"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, info)
}

type createCodesRequest struct {
	Name           string `json:"name"`
	Type           int    `json:"type"`
	Quota          int64  `json:"quota" binding:"required"`
	Count          int    `json:"count"`
	MaxUses        int    `json:"max_uses"`
	MaxUsesPerUser int    `json:"max_uses_per_user"`
	ExpiredTime    int64  `json:"expired_time"`
}

// CreateCodes batch-creates codes sharing one definition (admin).
func (r *RedemptionController) CreateCodes(ctx *gin.Context) {
	var req createCodesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request body")
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Type == 0 {
		req.Type = models.RedemptionTypeNormal
	}

	keys, err := models.CreateRedemptionCodes(r.db, models.RedemptionCode{
		Name:           req.Name,
		Type:           req.Type,
		Quota:          req.Quota,
		MaxUses:        req.MaxUses,
		MaxUsesPerUser: req.MaxUsesPerUser,
		ExpiredTime:    req.ExpiredTime,
	}, req.Count)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"keys": keys})
}

// List pages over all codes, or searches when ?keyword is present, or groups
// by batch name when ?grouped=true.
func (r *RedemptionController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.Query("page"))
	pageSize, _ := strconv.Atoi(ctx.Query("page_size"))
	pageInfo := models.NewPageInfo(page, pageSize)

	if ctx.Query("grouped") == "true" {
		groups, total, err := models.GetRedemptionsGroupedByName(r.db, pageInfo)
		if err != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50312, "failed to list codes")
			return
		}
		utils.Success(ctx, gin.H{"items": groups, "total": total})
		return
	}

	if keyword := ctx.Query("keyword"); keyword != "" {
		codes, total, err := models.SearchRedemptions(r.db, keyword, pageInfo)
		if err != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, 50312, "failed to search codes")
			return
		}
		utils.Success(ctx, gin.H{"items": codes, "total": total})
		return
	}

	codes, total, err := models.GetAllRedemptions(r.db, pageInfo)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50312, "failed to list codes")
		return
	}
	utils.Success(ctx, gin.H{"items": codes, "total": total})
}

// Get returns one code by id (admin detail view).
func (r *RedemptionController) Get(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid id")
		return
	}
	code, err := models.GetRedemptionByID(r.db, uint(id))
	if err != nil {
		utils.ErrorKind(ctx, http.StatusNotFound, 40420, services.KindCodeNotFound, "redemption code not found")
		return
	}
	utils.Success(ctx, code)
}

type updateCodeRequest struct {
	Name           string `json:"name"`
	Quota          int64  `json:"quota"`
	MaxUses        int    `json:"max_uses"`
	MaxUsesPerUser int    `json:"max_uses_per_user"`
	ExpiredTime    int64  `json:"expired_time"`
}

// Update overwrites the admin-editable fields of a code.
func (r *RedemptionController) Update(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid id")
		return
	}
	var req updateCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request body")
		return
	}
	code := &models.RedemptionCode{
		ID:             uint(id),
		Name:           req.Name,
		Quota:          req.Quota,
		MaxUses:        req.MaxUses,
		MaxUsesPerUser: req.MaxUsesPerUser,
		ExpiredTime:    req.ExpiredTime,
	}
	if err := models.UpdateRedemption(r.db, code); err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50312, "failed to update code")
		return
	}
	utils.Success(ctx, gin.H{"message": "code updated"})
}

type statusRequest struct {
	Disabled bool `json:"disabled"`
}

// SetStatus disables or re-enables a code (admin). Re-enabling an exhausted
// code restores USED, not UNUSED.
func (r *RedemptionController) SetStatus(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid id")
		return
	}
	var req statusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request body")
		return
	}
	if err := models.UpdateRedemptionStatus(r.db, uint(id), req.Disabled); err != nil {
		utils.ErrorKind(ctx, http.StatusNotFound, 40420, services.KindCodeNotFound, "redemption code not found")
		return
	}
	utils.Success(ctx, gin.H{"message": "status updated"})
}

// Delete removes one code by id.
func (r *RedemptionController) Delete(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid id")
		return
	}
	if err := models.DeleteRedemptionByID(r.db, uint(id)); err != nil {
		utils.ErrorKind(ctx, http.StatusNotFound, 40420, services.KindCodeNotFound, "redemption code not found")
		return
	}
	utils.Success(ctx, gin.H{"message": "code deleted"})
}

// DeleteByName removes a whole named batch.
func (r *RedemptionController) DeleteByName(ctx *gin.Context) {
	name := ctx.Query("name")
	deleted, err := models.DeleteRedemptionsByName(r.db, name)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, err.Error())
		return
	}
	utils.Success(ctx, gin.H{"deleted": deleted})
}

// PurgeInvalid sweeps used, disabled, and expired codes.
func (r *RedemptionController) PurgeInvalid(ctx *gin.Context) {
	deleted, err := models.DeleteInvalidRedemptions(r.db, time.Now().Unix())
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50312, "failed to purge codes")
		return
	}
	utils.Success(ctx, gin.H{"deleted": deleted})
}
