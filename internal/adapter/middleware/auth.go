package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const callerKey = "caller"

var errBadToken = errors.New("invalid bearer token")

// Authenticate resolves the bearer token into the caller account (the `sub`
// claim). Requests without a token stay anonymous; a malformed or expired
// token is rejected with 401.
func Authenticate(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				return next(c)
			}
			tok, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": errBadToken.Error()})
			}
			sub, err := parseSubject(secret, strings.TrimSpace(tok))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": errBadToken.Error()})
			}
			c.Set(callerKey, sub)
			return next(c)
		}
	}
}

// CallerFrom returns the authenticated account, or "" for anonymous requests.
func CallerFrom(c echo.Context) string {
	s, _ := c.Get(callerKey).(string)
	return s
}

// SignToken issues an HS256 token for account. ttl <= 0 means no expiry.
func SignToken(secret []byte, account string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  account,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseSubject(secret []byte, tok string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errBadToken
	}
	return claims.Subject, nil
}
