package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core/review"
)

type reviewApi struct {
	svc *review.Service
}

func registerReviewAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *review.Service) {
	api := reviewApi{svc: svc}

	g.GET("/course/:courseId", api.byCourse)

	ag := g.Group("", auth)
	ag.POST("", api.createOrUpdate)
	ag.GET("/my-review/:courseId", api.mine)
	ag.GET("/my-reviews", api.myReviews)
	ag.DELETE("/:courseId", api.destroy)
}

func (api *reviewApi) createOrUpdate(ctx echo.Context) error {
	var data review.Input
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to review Input")
	}

	r, created, err := api.svc.CreateOrUpdate(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return err
	}
	if !created {
		return ctx.JSON(http.StatusOK, echo.Map{"message": "Review updated successfully", "review": r})
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Review created successfully", "review": r})
}

func (api *reviewApi) byCourse(ctx echo.Context) error {
	res, err := api.svc.CourseReviews(ctx.Request().Context(), ctx.Param("courseId"))
	if err != nil {
		return err
	}
	if res.Reviews == nil {
		res.Reviews = []review.View{}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *reviewApi) mine(ctx echo.Context) error {
	r, err := api.svc.MyReview(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("courseId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"review": r})
}

func (api *reviewApi) myReviews(ctx echo.Context) error {
	views, err := api.svc.MyReviews(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	if views == nil {
		views = []review.View{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"reviews": views})
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("courseId")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Review deleted successfully"})
}
