package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/pkg/logger"
)

const auditResourceKey = "audit_resource"

// Audit writes one structured audit line for every successful write under resource.
// Reads are not audited. When groups nest, the innermost resource wins and the
// outermost middleware writes the single line.
func Audit(l *zap.Logger, resource string) gin.HandlerFunc {
	if l == nil {
		l = zap.NewNop()
	}
	l = l.Named("audit")
	return func(c *gin.Context) {
		_, nested := c.Get(auditResourceKey)
		c.Set(auditResourceKey, resource)
		start := time.Now().UTC()
		c.Next()

		if nested || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("resource", c.GetString(auditResourceKey)),
			zap.String("action", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("target", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.GetHeader("User-Agent")),
		}
		if claims := CurrentUser(c); claims != nil {
			fields = append(fields, zap.String("role", string(claims.Role)))
		}
		logger.ForRequest(l, c).Info("write", fields...)
	}
}
