package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/gin-gonic/gin" // Gin web framework
)

// CORSMiddleware lets the storefront and admin apps call the API with credentials
func CORSMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins)) // Exact origin matches only
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true // Browsers send origins without a trailing slash
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin") // Empty for same-origin and server calls
		if origin != "" && allowed[origin] {
			// Echo the origin; a wildcard is not allowed with credentials
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			h.Add("Vary", "Origin") // Caches must key on the origin
		}
		if c.Request.Method == http.MethodOptions {
			// Preflight ends here
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
