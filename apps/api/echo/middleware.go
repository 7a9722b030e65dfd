package echoapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ThumulaGamage/EduPlatform-backend/services/metrics"
)

// metricsMiddleware records every request under its route pattern.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			endpoint := ctx.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			metrics.RecordAPIRequest(ctx.Request().Method, endpoint, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}

// newRequestID generates the X-Request-ID of requests arriving without one.
func newRequestID() string {
	return uuid.New().String()
}
