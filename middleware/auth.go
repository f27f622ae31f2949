package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"adaptive-learning-platform/internal/config"
)

// AdminClaims is the token payload for the admin API (reindex trigger,
// stats). Student-facing endpoints are unauthenticated.
type AdminClaims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	secret    []byte
	expiresIn time.Duration
}

func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	expires, err := time.ParseDuration(cfg.JWTExpiresIn)
	if err != nil || expires <= 0 {
		expires = 24 * time.Hour
	}
	return &AuthMiddleware{
		secret:    []byte(cfg.JWTSecret),
		expiresIn: expires,
	}
}

// IssueToken mints an admin token. Used by deployment tooling, not
// exposed over HTTP.
func (a *AuthMiddleware) IssueToken(subject string) (string, error) {
	claims := AdminClaims{
		Subject: subject,
		Role:    "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.expiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// RequireAdmin validates the bearer token on admin routes.
func (a *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error_code": "unauthorized",
				"message":    "Authentication token is required",
			})
			return
		}

		claims := &AdminClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error_code": "invalid_token",
				"message":    "Invalid or expired token",
			})
			return
		}
		if claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error_code": "forbidden",
				"message":    "Admin role required",
			})
			return
		}

		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}

func extractBearer(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
