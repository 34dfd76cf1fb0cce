package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quotaboard/middleware"
	"github.com/cppla/quotaboard/services"
	"github.com/cppla/quotaboard/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// kindStatus maps a service error kind to an HTTP status and a stable numeric
// code. The kind string is the contract; statuses only separate client
// mistakes from server trouble.
var kindStatus = map[string]struct {
	status int
	code   int
}{
	services.KindCheckInDisabled:      {http.StatusForbidden, 40310},
	services.KindVerificationRequired: {http.StatusBadRequest, 40031},
	services.KindVerificationInvalid:  {http.StatusBadRequest, 40032},
	services.KindAlreadyCheckedIn:     {http.StatusBadRequest, 40030},
	services.KindCodeNotFound:         {http.StatusNotFound, 40420},
	services.KindCodeDisabled:         {http.StatusBadRequest, 40041},
	services.KindCodeExpired:          {http.StatusBadRequest, 40042},
	services.KindCodeExhausted:        {http.StatusBadRequest, 40043},
	services.KindPerUserLimitExceeded: {http.StatusBadRequest, 40044},
	services.KindConcurrencyConflict:  {http.StatusConflict, 40910},
	services.KindStoreUnavailable:     {http.StatusServiceUnavailable, 50310},
}

// respondServiceError writes a classified service failure; anything
// unclassified is reported as a store problem without leaking internals.
func respondServiceError(ctx *gin.Context, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		if m, ok := kindStatus[svcErr.Kind]; ok {
			utils.ErrorKind(ctx, m.status, m.code, svcErr.Kind, svcErr.Message)
			return
		}
	}
	utils.ErrorKind(ctx, http.StatusServiceUnavailable, 50310, services.KindStoreUnavailable, "store unavailable")
}
