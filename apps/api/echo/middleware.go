package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mzalendo/daftari/core/session"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware only lets teachers and admins through.
func staffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTeacher || claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// legacyAuthHeaderMiddleware promotes the legacy X-Auth-Token header to a
// standard bearer Authorization header when the latter is absent, so both
// front-end generations authenticate the same way.
func legacyAuthHeaderMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			if req.Header.Get(echo.HeaderAuthorization) == "" {
				if raw := req.Header.Get("X-Auth-Token"); raw != "" {
					req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)
				}
			}
			return next(ctx)
		}
	}
}

// denylistMiddleware rejects tokens whose ID has been revoked on logout.
// It must run after the JWT middleware.
func denylistMiddleware(denylist session.TokenDenylist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			revoked, err := denylist.IsRevoked(ctx.Request().Context(), claims.ID)
			if err != nil {
				return errors.Wrap(err, "checking token denylist")
			}
			if revoked {
				return errTokenRevoked
			}
			return next(ctx)
		}
	}
}
