package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	applogger "ProScalper/pkg/logger"

	"github.com/labstack/echo/v4"
)

const stackLimit = 4 << 10

// Recover turns a handler panic into a 500 envelope and an error log entry
// carrying a truncated stack. Nothing is written if the response was already
// committed.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				stack := make([]byte, stackLimit)
				stack = stack[:runtime.Stack(stack, false)]
				l.Error("http.panic recovered",
					applogger.String("method", c.Request().Method),
					applogger.String("route", c.Path()),
					applogger.String("panic", fmt.Sprint(r)),
					applogger.String("stack", string(stack)),
				)
				if c.Response().Committed {
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
				})
			}()
			return next(c)
		}
	}
}
