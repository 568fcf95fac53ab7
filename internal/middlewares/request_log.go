package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prime-labs/express-bot/internal/pkg/httpclient"
	logger "github.com/prime-labs/express-bot/middleware/log"
)

// RequestLogMiddleware tags each admin request with a trace id (taken from
// X-Trace-ID when present) and logs it once it completes.
func RequestLogMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logger.WithTraceID(c.Request.Context(), c.GetHeader(httpclient.TraceHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header(httpclient.TraceHeader, logger.GetTraceID(ctx))

		c.Next()

		log.InfoContext(ctx, "admin request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
