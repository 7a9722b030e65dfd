package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	"github.com/ThumulaGamage/EduPlatform-backend/core/guard"
)

type accountApi struct {
	svc *account.Service
}

func registerAccountAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *account.Service, gd *guard.Guard) {
	api := accountApi{svc: svc}

	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.GET("/me", api.me, auth, capabilityMiddleware(gd, guard.AccountReadSelf))

	// administration
	ug := g.Group("/users", auth, capabilityMiddleware(gd, guard.AccountManage))
	ug.GET("", api.query)
	ug.POST("", api.create)
	ug.GET("/:id", api.retrieve)
	ug.PUT("/:id", api.update)
	ug.DELETE("/:id", api.destroy)
}

type AuthResponse struct {
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token"`
	User    account.Account `json:"user"`
}

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	acc, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	token, err := api.svc.IssueToken(acc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, AuthResponse{Message: "User registered successfully", Token: token, User: acc})
}

func (api *accountApi) login(ctx echo.Context) error {
	var data account.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	acc, token, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AuthResponse{Message: "Login successful", Token: token, User: acc})
}

func (api *accountApi) me(ctx echo.Context) error {
	acc, err := api.svc.GetByID(ctx.Request().Context(), getPrincipal(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"user": acc})
}

func (api *accountApi) query(ctx echo.Context) error {
	var filter account.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	users, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"users": users})
}

func (api *accountApi) create(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	acc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"user": acc})
}

func (api *accountApi) retrieve(ctx echo.Context) error {
	acc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"user": acc})
}

func (api *accountApi) update(ctx echo.Context) error {
	var data account.UpdateAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAccount")
	}

	acc, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"user": acc})
}

func (api *accountApi) destroy(ctx echo.Context) error {
	// Say No to Suicide! admins cannot delete themselves
	if ctx.Param("id") == getPrincipal(ctx).ID {
		return guard.ErrForbidden
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}
