package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"flashsale/pkg/log"
	"flashsale/pkg/utils"
)

// Recovery panic recovery middleware
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(map[string]interface{}{
			"error":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"stack":  string(debug.Stack()),
		}).Error("panic recovered")

		utils.ErrorResponse(c, utils.HTTPStatus(utils.CodeInternalError),
			utils.CodeInternalError, "internal server error")
		c.Abort()
	})
}
