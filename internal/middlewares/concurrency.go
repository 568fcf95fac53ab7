package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxConcurrencyMiddleware rejects requests with 503 once maxConcurrent
// requests are already in flight.
func MaxConcurrencyMiddleware(maxConcurrent int) gin.HandlerFunc {
	sem := make(chan struct{}, maxConcurrent)

	return func(c *gin.Context) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "too many concurrent admin requests",
			})
		}
	}
}
