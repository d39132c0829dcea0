package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns panics and errors attached with c.Error into the
// generic 500 body. Details only go to the log.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					"panic", rec,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"requestId", c.GetString("requestId"),
				)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
				} else {
					c.Abort()
				}
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		for _, e := range c.Errors {
			logger.Error("request failed",
				"error", e.Err,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"requestId", c.GetString("requestId"),
			)
		}
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
	}
}
