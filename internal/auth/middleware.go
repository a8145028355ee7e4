package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const identityKey = "backoffice_identity"

// ResolveIdentity reads the JWT validated by the echo-jwt middleware and
// stores the resolved Identity on the request context.
func ResolveIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
			}
			claims, ok := token.Claims.(*jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid claims"})
			}

			id := Identity{Role: RoleViewer}
			if sub, ok := (*claims)["sub"].(string); ok {
				if uid, err := uuid.Parse(sub); err == nil {
					id.UserID = uid
				}
			}
			if role, ok := (*claims)["role"].(string); ok {
				id.Role = ParseRole(role)
			}

			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// RequireRole denies the request unless the session role meets min.
func RequireRole(min Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := FromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
			}
			if !id.Role.Allows(min) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}

// FromContext returns the identity resolved by ResolveIdentity.
func FromContext(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}
