package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/forumkit/utils"
)

// RequestID assigns every request a uuid, echoed in the X-Request-ID header
// and picked up by the access log.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := ctx.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx.Set(utils.ContextRequestIDKey, rid)
		ctx.Writer.Header().Set("X-Request-ID", rid)
		ctx.Next()
	}
}
