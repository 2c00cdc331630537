package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/authforge/identity-system/internal/api/middleware"
	"github.com/authforge/identity-system/internal/core/domain"
)

// ctxIdentity extracts the identity injected by the Auth middleware and
// fast-fails before any service call: a missing or subject-less claim set
// means the middleware did not run or the token was structurally unusable.
func ctxIdentity(c echo.Context) (domain.PublicIdentity, error) {
	claims, _ := c.Get(middleware.ClaimsKey).(*domain.TokenClaims)
	if claims == nil || claims.Subject == "" {
		return domain.PublicIdentity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims.Identity(), nil
}
