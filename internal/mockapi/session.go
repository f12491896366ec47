package mockapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errTokenInvalid = errors.New("invalid session token")

// sessionClaims are carried in the signed session cookie
type sessionClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SessionData is the authenticated context of a request
type SessionData struct {
	SessionID string
	UserID    string
	Role      string
}

// tokenIssuer signs and verifies session cookies
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func newTokenIssuer(secret string, ttl time.Duration) (*tokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret not initialized")
	}
	return &tokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

// issue signs a token for session sessionID
func (t *tokenIssuer) issue(sessionID, userID, role string, now time.Time) (string, error) {
	claims := sessionClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// verify validates a token and returns its session
func (t *tokenIssuer) verify(tokenString string) (*SessionData, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTokenInvalid, err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, errTokenInvalid
	}
	return &SessionData{SessionID: claims.ID, UserID: claims.UserID, Role: claims.Role}, nil
}
