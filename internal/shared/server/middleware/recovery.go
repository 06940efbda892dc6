package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"docqa-backend/internal/shared/server/respond"
	"docqa-backend/internal/shared/telemetry"
)

// Recovery turns handler panics into a 500 response. If the handler already started
// writing, the connection is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			telemetry.Error("http.panic", map[string]any{
				"request_id":  RequestIDFromContext(c),
				"user_id":     UserIDFromContext(c),
				"document_id": c.Param("id"),
				"route":       c.FullPath(),
				"method":      c.Request.Method,
				"error":       fmt.Sprint(rec),
				"stack":       string(debug.Stack()),
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Unexpected server error", nil)
		}()
		c.Next()
	}
}
