package middleware

import (
	"errors"                         // Not-found detection
	"net/http"                       // HTTP status codes
	"storefront_api/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// AdminOnlyMiddleware re-reads the session owner on every request so a
// demoted or deleted admin loses access before the cookie expires.
// The stored email and role replace the ones signed into the session.
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Set by the session middleware
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		log := LoggerFrom(c).WithField("user_id", userID)

		var user domain.User // Current account state
		err := db.WithContext(c.Request.Context()).First(&user, userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			log.Warn("Admin session for a deleted account")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		case err != nil:
			log.WithField("error", err.Error()).Error("Failed to load admin account")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify admin access"})
			return
		}
		if user.Role != domain.RoleAdmin {
			log.WithFields(logrus.Fields{"role": user.Role, "path": c.Request.URL.Path}).Warn("Non-admin reached the admin area")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Set("email", user.Email) // Handlers see the stored values
		c.Set("role", user.Role)
		c.Next()
	}
}
