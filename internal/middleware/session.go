package middleware

import (
	"errors"                        // Expired session detection
	"net/http"                      // HTTP status codes
	"storefront_api/internal/utils" // Session signing
	"time"                          // Inactivity timeout

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// AdminSessionCookie is the cookie carrying the signed admin session
const AdminSessionCookie = "admin_session"

// SessionOptions configures the admin session cookie
type SessionOptions struct {
	Secret  string           // Signing secret
	Timeout time.Duration    // Inactivity timeout
	Secure  bool             // Send the cookie over HTTPS only
	Now     func() time.Time // Clock override for tests
}

func (o SessionOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// SetAdminSession issues a fresh session cookie for the admin
func SetAdminSession(c *gin.Context, opts SessionOptions, id uint, email, role string) error {
	value, err := utils.SignAdminSession(id, email, role, opts.now(), opts.Secret) // Stamped with the current time
	if err != nil {
		return err // Return on error
	}
	c.SetSameSite(http.SameSiteLaxMode)                                                             // Sent on top-level navigation only
	c.SetCookie(AdminSessionCookie, value, int(opts.Timeout.Seconds()), "/", "", opts.Secure, true) // HttpOnly
	return nil
}

// ClearAdminSession expires the session cookie
func ClearAdminSession(c *gin.Context, opts SessionOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AdminSessionCookie, "", -1, "/", "", opts.Secure, true) // Negative max age deletes it
}

// AdminSessionMiddleware accepts requests carrying a valid, recently active
// admin session and slides its inactivity window forward.
func AdminSessionMiddleware(opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := c.Cookie(AdminSessionCookie) // Read the session cookie
		if err != nil || value == "" {
			// No cookie, no admin access
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Admin session required"})
			return
		}
		session, err := utils.ParseAdminSession(value, opts.Secret, opts.now(), opts.Timeout)
		if err != nil {
			LoggerFrom(c).WithField("error", err.Error()).Warn("Rejected admin session")
			ClearAdminSession(c, opts) // Drop the stale cookie from the browser
			msg := "Invalid admin session"
			if errors.Is(err, utils.ErrSessionExpired) {
				msg = "Admin session expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		c.Set("userID", session.ID) // Store session owner in context
		c.Set("email", session.Email)
		c.Set("role", session.Role)
		// Re-issue the cookie so the inactivity window restarts now
		if err := SetAdminSession(c, opts, session.ID, session.Email, session.Role); err != nil {
			LoggerFrom(c).WithFields(logrus.Fields{"user_id": session.ID, "error": err.Error()}).Error("Failed to refresh admin session")
		}
		c.Next() // Proceed to the next handler
	}
}
