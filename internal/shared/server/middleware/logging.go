package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docqa-backend/internal/shared/telemetry"
)

// quietRoutes are polled by infrastructure and not worth a log line per hit.
var quietRoutes = map[string]bool{
	"/health":        true,
	"/api/v1/health": true,
	"/metrics":       true,
}

// Logging emits one request.complete line per request, at error level for 5xx.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if quietRoutes[c.FullPath()] && status < http.StatusInternalServerError {
			return
		}

		documentID := c.GetString("documentId")
		if documentID == "" {
			documentID = c.Param("id")
		}
		isGuest, _ := c.Get(isGuestKey)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"route":             c.FullPath(),
			"status":            status,
			"status_transition": c.GetString("statusTransition"),
			"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes_out":         c.Writer.Size(),
			"user_id":           UserIDFromContext(c),
			"document_id":       documentID,
			"is_guest":          isGuest,
			"client_ip":         c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			telemetry.Error("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
