package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrAuthRequired = errors.New("auth required: no resolvable user identity")
	ErrInvalidToken = errors.New("invalid token")
)

// ContextUserKey is the gin context key the middleware stores the
// authenticated user id under.
const ContextUserKey = "userID"

// Verifier validates the HS256 tokens issued by the main application's
// auth service. This service never issues tokens itself.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses tokenString and returns the user id it carries.
func (v *Verifier) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrAuthRequired
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		// the main app historically used a userID claim
		userID, _ = claims["userID"].(string)
	}
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// ExtractToken gets the token from the Authorization header (Bearer) or the
// token query parameter, in that order. Websocket handshakes from browsers
// cannot set headers, hence the query fallback.
func ExtractToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if v != "" {
		if strings.HasPrefix(v, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
		}
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Middleware rejects unauthenticated REST requests and exposes the user id
// to handlers via the gin context.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := v.Verify(ExtractToken(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// GenerateToken signs a short-lived HS256 token for userID. Used by tests
// and local tooling; production tokens come from the main application.
func GenerateToken(userID, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
