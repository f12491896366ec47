package mockapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/coinvest-dev/coinvest/internal/models"
)

var (
	ErrMissingSession = errors.New("missing session cookie")
	ErrSessionEnded   = errors.New("session revoked or expired")
	ErrUserNotFound   = errors.New("user not found")
	ErrUserSuspended  = errors.New("user suspended")
)

const sessionContextKey = "session"

func setSession(c *gin.Context, sessionData *SessionData) {
	c.Set(sessionContextKey, sessionData)
}

// GetSessionData returns the session attached by SessionMiddleware
func GetSessionData(c *gin.Context) (*SessionData, bool) {
	session, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*SessionData)
	return sessionData, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.AbortWithStatusJSON(statusCode, envelope{Success: false, Message: message})
}

// SessionMiddleware requires a valid, unrevoked session cookie whose user
// still exists and is active
func SessionMiddleware(db *gorm.DB, tokens *tokenIssuer, cookieName string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookieName)
		if err != nil || raw == "" {
			respondWithError(c, log, http.StatusUnauthorized, ErrMissingSession, "Not authenticated")
			return
		}

		sessionData, err := tokens.verify(raw)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, err, "Session expired")
			return
		}

		var session sessionRecord
		if err := db.Where("id = ?", sessionData.SessionID).First(&session).Error; err != nil ||
			session.RevokedAt != nil || time.Now().After(session.ExpiresAt) {
			respondWithError(c, log, http.StatusUnauthorized, ErrSessionEnded, "Session expired")
			return
		}

		var user userRecord
		if err := db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
			respondWithError(c, log, http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}
		if user.Status == statusSuspended {
			respondWithError(c, log, http.StatusForbidden, ErrUserSuspended, "Account suspended")
			return
		}

		sessionData.Role = string(user.Role)
		setSession(c, sessionData)
		c.Next()
	}
}

// RoleMiddleware restricts a group to roles
func RoleMiddleware(log zerolog.Logger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Not authenticated")
			return
		}

		for _, r := range roles {
			if string(r) == sessionData.Role {
				c.Next()
				return
			}
		}
		respondWithError(c, log, http.StatusForbidden, errors.New("role not allowed"), "You do not have access to this resource")
	}
}
