package ratelimit

import (
	xhttp "ProScalper/pkg/http"
	applogger "ProScalper/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Middleware rejects requests over the limit with 429 and a Retry-After taken
// from the limiter (at least one second). Keys are remote IP plus route path.
// Store errors let the request through.
func Middleware(lim Limiter, l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			key := c.RealIP() + "|" + path

			ok, wait, err := lim.Allow(c.Request().Context(), key)
			if err != nil {
				if l != nil {
					l.Warn("ratelimit.allow failed", applogger.String("key", key), applogger.Error(err))
				}
				return next(c)
			}
			if !ok {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(wait))
			}
			return next(c)
		}
	}
}
