package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"storefront_api/internal/domain"     // Importing domain models
	"storefront_api/internal/middleware" // Request-scoped logging
	"storefront_api/internal/utils"      // Role checks

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// UserRequest is the body of user create and registration
type UserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"` // bcrypt ignores bytes past 72
	Role     string `json:"role"`
}

// UserUpdateRequest is the body of a user update; an empty password keeps the old one
type UserUpdateRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=8,max=72"`
	Role     string `json:"role"`
}

var roles = []string{domain.RoleUser, domain.RoleAdmin}

func emailTaken(db *gorm.DB, email string, exceptID uint) (bool, error) {
	var count int64
	err := db.Model(&domain.User{}).Where("email = ? AND id <> ?", email, exceptID).Count(&count).Error
	return count > 0, err
}

// createUser validates and stores a new account
func createUser(c *gin.Context, db *gorm.DB, req UserRequest) {
	email := strings.ToLower(strings.TrimSpace(req.Email)) // Shape already checked by binding
	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !utils.Contains(roles, role) {
		validationError(c, "role", "role is invalid")
		return
	}
	tx := db.WithContext(c.Request.Context())
	taken, err := emailTaken(tx, email, 0)
	if err != nil {
		middleware.LoggerFrom(c).WithField("error", err.Error()).Error("User lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered", "field": "email"})
		return
	}
	// Hash the password and create the user
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	user := domain.User{Email: email, Password: string(hash), Role: role}
	if err := tx.Create(&user).Error; err != nil {
		middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	middleware.LoggerFrom(c).WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("User created")
	c.JSON(http.StatusCreated, user)
}

// CreateUserHandler lets an admin create an account with any role
func CreateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest
		if !bindJSON(c, &req) {
			return
		}
		createUser(c, db, req)
	}
}

// ListUsersHandler returns every account
func ListUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		users := []domain.User{}
		if err := db.WithContext(c.Request.Context()).Order("id asc").Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// GetUserHandler returns one account by id
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var user domain.User
		if err := db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
			respondUserLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// GetUserByEmailHandler returns one account by email
func GetUserByEmailHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.Param("email")))
		var user domain.User
		if err := db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
			respondUserLookup(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func respondUserLookup(c *gin.Context, err error) {
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	middleware.LoggerFrom(c).WithField("error", err.Error()).Error("Failed to fetch user")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
}

// UpdateUserHandler changes email, role and, when given, the password
func UpdateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req UserUpdateRequest
		if !bindJSON(c, &req) {
			return
		}
		tx := db.WithContext(c.Request.Context())
		var user domain.User
		if err := tx.First(&user, id).Error; err != nil {
			respondUserLookup(c, err)
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if req.Role != "" && !utils.Contains(roles, req.Role) {
			validationError(c, "role", "role is invalid")
			return
		}
		taken, err := emailTaken(tx, email, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered", "field": "email"})
			return
		}
		user.Email = email
		if req.Role != "" {
			user.Role = req.Role
		}
		if req.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
				return
			}
			user.Password = string(hash)
		}
		if err := tx.Save(&user).Error; err != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"user_id": id, "error": err.Error()}).Error("Failed to update user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// DeleteUserHandler removes an account other than the caller's own
func DeleteUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if id == c.GetUint("userID") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot delete your own account"})
			return
		}
		res := db.WithContext(c.Request.Context()).Delete(&domain.User{}, id)
		if res.Error != nil {
			middleware.LoggerFrom(c).WithFields(logrus.Fields{"user_id": id, "error": res.Error.Error()}).Error("Failed to delete user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
