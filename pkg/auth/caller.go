package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/punkmap/questledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerContextKey = "ledger_caller"

// CallerAuth issues and validates signed caller-identity tokens. The token
// subject is the opaque caller identifier checked against quest owner and
// hero fields by the ledger.
type CallerAuth struct {
	secret []byte
	ttl    time.Duration
}

func NewCallerAuth(secret string, ttl time.Duration) *CallerAuth {
	return &CallerAuth{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// IssueToken signs a token for the given caller identity.
func (a *CallerAuth) IssueToken(caller string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   caller,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseToken validates a token string and returns the caller identity.
func (a *CallerAuth) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// CallerAuthMiddleware extracts the caller identity from the Authorization
// header and stores it in the request context.
func (a *CallerAuth) CallerAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Info("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Info("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}

		caller, err := a.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Info("invalid caller token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid caller token"})
			return
		}

		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// CallerFromContext returns the authenticated caller identity set by the
// middleware.
func CallerFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(callerContextKey)
	if !exists {
		return "", false
	}
	caller, ok := v.(string)
	return caller, ok && caller != ""
}
