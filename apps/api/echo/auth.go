package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
)

const contextPrincipalKey = "principal"

// authMiddleware resolves the bearer token of the request into the request principal.
func authMiddleware(svc *account.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := account.FromAuthorizationHeader(ctx.Request().Header.Get(echo.HeaderAuthorization))
			p, err := svc.VerifyToken(token)
			if err != nil {
				return err
			}
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

// getPrincipal returns the principal of an authenticated request, or the zero Principal.
func getPrincipal(ctx echo.Context) core.Principal {
	p, _ := ctx.Get(contextPrincipalKey).(core.Principal)
	return p
}

// capabilityMiddleware only lets through principals holding c regardless of ownership.
func capabilityMiddleware(g *guard.Guard, c guard.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := g.Authorize(getPrincipal(ctx), c); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
