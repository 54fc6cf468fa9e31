package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-directory/internal/api/handler"
	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

func userFrom(c echo.Context) *domain.User {
	user, _ := c.Get(handler.UserContextKey).(*domain.User)
	return user
}

// RequireActivated lets through only activated users. It must run after Auth.
func RequireActivated(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := auth.RequireActivated(userFrom(c)); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RBAC enforces role-based access control: the user must be activated and
// hold any of allowedRoles.
func RBAC(auth ports.AuthService, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := auth.RequireRole(userFrom(c), allowedRoles...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// SelfOrRBAC passes when the path parameter param names the caller, and
// otherwise falls back to the role check.
func SelfOrRBAC(auth ports.AuthService, param string, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := auth.RequireActivated(userFrom(c))
			if err != nil {
				return err
			}
			if user.ID == c.Param(param) {
				return next(c)
			}
			if _, err := auth.RequireRole(user, allowedRoles...); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden").SetInternal(err)
			}
			return next(c)
		}
	}
}
