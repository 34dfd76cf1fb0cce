package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quotaboard/config"
	"github.com/cppla/quotaboard/utils"
)

// AdminRequired gates admin endpoints on the configured admin username list.
// Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		username, _ := ctx.Get(ContextUsernameKey)
		name, _ := username.(string)

		cfg := config.Get()
		for _, admin := range cfg.AdminUsernames {
			if name != "" && name == admin {
				ctx.Next()
				return
			}
		}

		utils.Error(ctx, http.StatusForbidden, 40301, "admin privilege required")
		ctx.Abort()
	}
}
