package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/helpline/faqmatch/internal/infra/config"
)

// authMiddleware accepts either the configured static bearer token or an
// HS256 JWT signed with the configured secret. Token comparison is
// constant time.
func authMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil))
			return
		}
		token := strings.TrimSpace(parts[1])

		if staticTokenMatches(cfg.BearerToken, token) {
			c.Next()
			return
		}
		if cfg.JWTSecret != "" && jwtTokenValid(cfg.JWTSecret, token) {
			c.Next()
			return
		}

		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid token", nil))
	}
}

func staticTokenMatches(expected, presented string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

func jwtTokenValid(secret, presented string) bool {
	parsed, err := jwt.Parse(presented, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && parsed.Valid
}
