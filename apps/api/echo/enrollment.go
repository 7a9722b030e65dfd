package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core/enrollment"
	"github.com/ThumulaGamage/EduPlatform-backend/services/metrics"
)

type enrollmentApi struct {
	svc *enrollment.Service
}

// registerEnrollmentAPI expects g to be authenticated.
func registerEnrollmentAPI(g *echo.Group, svc *enrollment.Service) {
	api := enrollmentApi{svc: svc}

	g.POST("/request", api.request)
	g.GET("/my-enrollments", api.mine)
	g.GET("/pending", api.pending)
	g.GET("/my-students", api.students)
	g.GET("/course/:courseId", api.byCourse)

	g.PUT("/:id/approve", api.approve)
	g.PUT("/:id/reject", api.reject)
	g.PUT("/:id/progress", api.progress)
	g.PUT("/:id/complete-lesson", api.completeLesson)
	g.PUT("/:id/uncomplete-lesson", api.uncompleteLesson)
}

func enrollmentsResponse(ctx echo.Context, views []enrollment.View) error {
	if views == nil {
		views = []enrollment.View{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"enrollments": views})
}

func (api *enrollmentApi) request(ctx echo.Context) error {
	var data enrollment.RequestInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RequestInput")
	}

	e, err := api.svc.Request(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return err
	}
	metrics.RecordEnrollmentTransition(e.Status)
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Enrollment request submitted", "enrollment": e})
}

func (api *enrollmentApi) mine(ctx echo.Context) error {
	views, err := api.svc.Mine(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return enrollmentsResponse(ctx, views)
}

func (api *enrollmentApi) pending(ctx echo.Context) error {
	views, err := api.svc.Pending(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return enrollmentsResponse(ctx, views)
}

func (api *enrollmentApi) students(ctx echo.Context) error {
	views, err := api.svc.Students(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return enrollmentsResponse(ctx, views)
}

func (api *enrollmentApi) byCourse(ctx echo.Context) error {
	views, err := api.svc.ByCourse(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("courseId"))
	if err != nil {
		return err
	}
	return enrollmentsResponse(ctx, views)
}

func (api *enrollmentApi) approve(ctx echo.Context) error {
	e, err := api.svc.Approve(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	metrics.RecordEnrollmentTransition(e.Status)
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Enrollment approved", "enrollment": e})
}

func (api *enrollmentApi) reject(ctx echo.Context) error {
	e, err := api.svc.Reject(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	metrics.RecordEnrollmentTransition(e.Status)
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Enrollment rejected", "enrollment": e})
}

func (api *enrollmentApi) progress(ctx echo.Context) error {
	var data enrollment.ProgressInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressInput")
	}
	if data.Progress == nil {
		return fieldError("progress", "progress is required")
	}

	e, err := api.svc.UpdateProgress(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), *data.Progress)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"enrollment": e})
}

func (api *enrollmentApi) completeLesson(ctx echo.Context) error {
	var data enrollment.LessonInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonInput")
	}

	e, err := api.svc.CompleteLesson(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data.LessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"enrollment": e})
}

func (api *enrollmentApi) uncompleteLesson(ctx echo.Context) error {
	var data enrollment.LessonInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonInput")
	}

	e, err := api.svc.UncompleteLesson(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data.LessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"enrollment": e})
}
