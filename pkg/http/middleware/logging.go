package middleware

import (
	"time"

	applogger "ProScalper/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one access entry per request: warn for 4xx and 5xx,
// debug otherwise so polling clients stay quiet.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			res := c.Response()
			fields := []applogger.Field{
				applogger.String("method", c.Request().Method),
				applogger.String("route", c.Path()),
				applogger.String("remote_ip", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Int64("bytes", res.Size),
				applogger.Duration("latency_ms", time.Since(start)),
			}
			if res.Status >= 400 {
				l.Warn("http.request", fields...)
			} else {
				l.Debug("http.request", fields...)
			}
			return nil
		}
	}
}
