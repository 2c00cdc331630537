package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/authforge/identity-system/internal/core/domain"
)

// RequireKind restricts a route to tokens of the allowed kinds, so a
// long-lived refresh token cannot be replayed against resource endpoints.
func RequireKind(allowedKinds ...domain.TokenKind) echo.MiddlewareFunc {
	allowed := make(map[domain.TokenKind]struct{}, len(allowedKinds))
	for _, k := range allowedKinds {
		allowed[k] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, _ := c.Get(ClaimsKey).(*domain.TokenClaims)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}
			if _, ok := allowed[claims.Kind]; !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "wrong token kind")
			}
			return next(c)
		}
	}
}
