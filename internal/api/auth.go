package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ppiankov/veritas/internal/model"
)

// AuthHeader carries the token for clients that do not send Authorization
const AuthHeader = "x-auth-token"

const subjectKey = "subject"

// ErrAuthNotConfigured is returned when no signing secret is set
var ErrAuthNotConfigured = fmt.Errorf("%w: token secret not configured", model.ErrUnauthorized)

// IssueToken signs an HS256 token for subject
func IssueToken(cfg model.AuthConfig, subject string) (string, error) {
	if cfg.JWTSecret == "" {
		return "", ErrAuthNotConfigured
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns its subject
func ParseToken(cfg model.AuthConfig, tokenString string) (string, error) {
	if cfg.JWTSecret == "" {
		return "", ErrAuthNotConfigured
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrUnauthorized, err)
	}
	return claims.Subject, nil
}

func tokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(AuthHeader)); t != "" {
		return t
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// RequireAuth rejects requests without a valid token before the handler runs
func RequireAuth(cfg model.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "No token, authorization denied"})
			return
		}

		subject, err := ParseToken(cfg, token)
		if err != nil {
			msg := "Token is not valid"
			if errors.Is(err, ErrAuthNotConfigured) {
				msg = "Authorization is not configured"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": msg})
			return
		}

		c.Set(subjectKey, subject)
		c.Next()
	}
}
