package utils

import (
	"errors" // Error values
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// Claims of a storefront login token
type Claims struct {
	UserID               uint   `json:"user_id"` // Custom claim for user ID
	Email                string `json:"email"`   // User email
	Role                 string `json:"role"`    // User role
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a storefront token for a user
func GenerateJWT(userID uint, email, role, secret string) (string, error) {
	// Set token claims
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)), // Token expires in 24 hours
			IssuedAt:  jwt.NewNumericDate(time.Now()),                     // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	if err := parseSigned(tokenStr, secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// parseSigned validates an HS256 token into claims
func parseSigned(tokenStr, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err // Return error if parsing fails
	}
	if !token.Valid {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

// ErrSessionExpired is returned for admin sessions idle past the timeout
var ErrSessionExpired = errors.New("session expired")

// AdminSession is the payload of the admin_session cookie
type AdminSession struct {
	ID                   uint   `json:"id"`        // Admin user ID
	Email                string `json:"email"`     // Admin email
	Role                 string `json:"role"`      // Role at login time
	Timestamp            int64  `json:"timestamp"` // Last activity, unix milliseconds
	jwt.RegisteredClaims        // Unused standard claims
}

// SignAdminSession encodes a session stamped with now
func SignAdminSession(id uint, email, role string, now time.Time, secret string) (string, error) {
	session := AdminSession{ID: id, Email: email, Role: role, Timestamp: now.UnixMilli()}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, session).SignedString([]byte(secret))
}

// ParseAdminSession verifies the cookie value and rejects sessions idle longer than timeout
func ParseAdminSession(value, secret string, now time.Time, timeout time.Duration) (*AdminSession, error) {
	session := &AdminSession{}
	if err := parseSigned(value, secret, session); err != nil {
		return nil, err
	}
	if now.Sub(time.UnixMilli(session.Timestamp)) > timeout {
		return nil, ErrSessionExpired
	}
	return session, nil
}
