package webserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/productporter/productporter/src/api/translate"
	"github.com/productporter/productporter/src/api/types"
	"gorm.io/gorm"
)

// Heartbeat records that a user was just seen; it drives the liveness
// oracle behind the soft-lock protocol.
type Heartbeat interface {
	Touch(ctx context.Context, username string) error
}

func issueJWT(username string, secret []byte) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": username,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(30 * 24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// OptionalAuth resolves the requester from a bearer token when one is
// present and touches the lastseen heartbeat. It never aborts; handlers
// decide what an anonymous caller may do.
func OptionalAuth(db *gorm.DB, hb Heartbeat, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.Next()
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !tok.Valid {
			c.Next()
			return
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			c.Next()
			return
		}
		username, _ := claims["sub"].(string)

		var u types.User
		if err := db.First(&u, "username = ?", username).Error; err != nil {
			c.Next()
			return
		}
		c.Set("user", &u)
		if hb != nil {
			_ = hb.Touch(c.Request.Context(), u.Username)
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *types.User {
	if v, ok := c.Get("user"); ok {
		if u, ok := v.(*types.User); ok {
			return u
		}
	}
	return nil
}

// ModeratorRequired gates administrative routes.
func ModeratorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "error", "error": "Please sign in first",
			})
			return
		}
		if !translate.CanModerate(u) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status": "error", "error": "moderator required",
			})
			return
		}
		c.Next()
	}
}
