package ratelimit

import (
    xhttp "FxCast/pkg/http"

    "github.com/labstack/echo/v4"
)

// Middleware rejects requests once the caller's bucket (keyed by client IP) is empty.
func Middleware(l *Limiter) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !l.Allow(c.RealIP()) {
                return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded, retry shortly"))
            }
            return next(c)
        }
    }
}
