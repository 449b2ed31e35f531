package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	loggerpkg "github.com/YassinSultan/CoreSystem-Backend/pkg/logger"
)

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		startedAt := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(startedAt)),
		}
		if claims, ok := GetClaims(c); ok {
			fields = append(fields, zap.String("user", claims.Username))
		}

		sanitized := loggerpkg.SanitizeFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("http request completed", sanitized...)
		case c.Writer.Status() >= 400:
			logger.Warn("http request completed", sanitized...)
		default:
			logger.Info("http request completed", sanitized...)
		}
	}
}
