package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"storefront_api/internal/domain"     // Importing domain models
	"storefront_api/internal/metrics"    // Prometheus counters
	"storefront_api/internal/middleware" // Session cookie helpers
	"storefront_api/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string      `json:"token"` // JWT token
	User  domain.User `json:"user"`  // Authenticated user
}

// SessionResponse describes the signed-in admin
type SessionResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// authenticate checks the credentials and records the attempt
func authenticate(c *gin.Context, db *gorm.DB, kind string, req LoginRequest) (*domain.User, bool) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user domain.User // Fetch user from database
	if err := db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
		metrics.AuthAttempts.WithLabelValues(kind, "failure").Inc()
		return nil, false
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		metrics.AuthAttempts.WithLabelValues(kind, "failure").Inc()
		middleware.LoggerFrom(c).WithFields(logrus.Fields{"kind": kind, "user_id": user.ID}).Warn("Failed login")
		return nil, false
	}
	metrics.AuthAttempts.WithLabelValues(kind, "success").Inc()
	return &user, true
}

// RegisterHandler creates a storefront account
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest
		if !bindJSON(c, &req) {
			return
		}
		req.Role = domain.RoleUser // Storefront sign-ups never get admin rights
		createUser(c, db, req)
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		user, ok := authenticate(c, db, "storefront", req)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, user.Email, user.Role, jwtSecret)
		if err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to generate token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: *user})
	}
}

// MeHandler returns the account behind the bearer token
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID") // Set by the JWT middleware
		var user domain.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// AdminLoginHandler starts an admin session cookie. Non-admin accounts get
// the same answer as wrong credentials.
func AdminLoginHandler(db *gorm.DB, opts middleware.SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		user, ok := authenticate(c, db, "admin", req)
		if !ok || user.Role != domain.RoleAdmin {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err := middleware.SetAdminSession(c, opts, user.ID, user.Email, user.Role); err != nil {
			middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to start admin session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
			return
		}
		middleware.LoggerFrom(c).WithField("user_id", user.ID).Info("Admin signed in")
		c.JSON(http.StatusOK, gin.H{"user": SessionResponse{ID: user.ID, Email: user.Email, Role: user.Role}})
	}
}

// AdminLogoutHandler ends the admin session
func AdminLogoutHandler(opts middleware.SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.ClearAdminSession(c, opts)
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
	}
}

// AdminSessionHandler reports the admin behind the current session
func AdminSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": SessionResponse{
			ID:    c.GetUint("userID"),
			Email: c.GetString("email"),
			Role:  c.GetString("role"),
		}})
	}
}
