package middleware

import (
	"net/http" // HTTP status codes
	"time"     // Request latency

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RequestLogger logs every request after it is served
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Start timer
		c.Next()            // Serve the request

		entry := LoggerFrom(c).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		// Level follows the status class
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Info("HTTP request")
		}
	}
}

// Recovery turns panics into JSON 500 responses
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		LoggerFrom(c).WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"panic": recovered,
		}).Error("Unhandled error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"}) // Never leak the panic value
	})
}
