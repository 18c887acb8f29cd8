package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// studentMiddleware rejects callers not authenticated as a student, before
// any storage access happens.
func studentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsStudent() {
				return errStudentSessionRequired
			}
			return next(ctx)
		}
	}
}
