package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/observability"
)

// Metrics records request counts and latency by route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := m.TrackHTTP(c.Request.Method)
		c.Next()
		done(c.FullPath(), c.Writer.Status())
	}
}
