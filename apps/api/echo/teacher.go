package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core/teacher"
)

type teacherApi struct {
	svc *teacher.Service
}

func registerTeacherAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *teacher.Service) {
	api := teacherApi{svc: svc}

	g.GET("", api.query)
	g.GET("/dashboard/stats", api.dashboard, auth)
	g.GET("/:id", api.retrieve)
}

func (api *teacherApi) query(ctx echo.Context) error {
	teachers, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing teachers")
	}
	if teachers == nil {
		teachers = []teacher.Listing{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"teachers": teachers})
}

func (api *teacherApi) retrieve(ctx echo.Context) error {
	profile, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (api *teacherApi) dashboard(ctx echo.Context) error {
	d, err := api.svc.Dashboard(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"stats": d})
}
