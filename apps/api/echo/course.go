package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *course.Service) {
	api := courseApi{svc: svc}

	// public catalog
	g.GET("", api.query)
	g.GET("/teacher", api.mine, auth)
	g.GET("/teacher/:teacherId", api.byTeacher)
	g.GET("/:id", api.retrieve)

	g.POST("", api.create, auth)
	g.PUT("/:id", api.update, auth)
	g.DELETE("/:id", api.destroy, auth)

	lg := g.Group("/:id/lessons", auth)
	lg.POST("", api.addLesson)
	lg.PUT("/:lessonId", api.updateLesson)
	lg.DELETE("/:lessonId", api.removeLesson)
}

func coursesOrEmpty(courses []course.Course) []course.Course {
	if courses == nil {
		return []course.Course{}
	}
	return courses
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := course.QueryFilter{
		TeacherID: ctx.QueryParam("teacherId"),
		Category:  ctx.QueryParam("category"),
		Level:     ctx.QueryParam("level"),
	}
	courses, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"courses": coursesOrEmpty(courses)})
}

func (api *courseApi) mine(ctx echo.Context) error {
	courses, err := api.svc.Mine(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"courses": coursesOrEmpty(courses)})
}

func (api *courseApi) byTeacher(ctx echo.Context) error {
	courses, err := api.svc.Query(ctx.Request().Context(), course.QueryFilter{TeacherID: ctx.Param("teacherId")})
	if err != nil {
		return errors.Wrap(err, "querying courses by teacher")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"courses": coursesOrEmpty(courses)})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"course": c})
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	c, err := api.svc.Create(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"course": c})
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	c, err := api.svc.Update(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"course": c})
}

func (api *courseApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Course deleted successfully"})
}

// Lessons

func (api *courseApi) addLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}

	c, err := api.svc.AddLesson(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"course": c})
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	var data course.UpdateLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}

	c, err := api.svc.UpdateLesson(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), ctx.Param("lessonId"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"course": c})
}

func (api *courseApi) removeLesson(ctx echo.Context) error {
	c, err := api.svc.RemoveLesson(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), ctx.Param("lessonId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"course": c})
}

// Materials

type materialApi struct {
	svc *course.Service
}

func registerMaterialAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *course.Service) {
	api := materialApi{svc: svc}

	g.GET("/course/:courseId", api.query)
	g.POST("/upload/:courseId", api.upload, auth)
	g.DELETE("/:courseId/:materialId", api.destroy, auth)
}

func (api *materialApi) upload(ctx echo.Context) error {
	up, release, err := formFile(ctx, "file")
	defer release()
	if err != nil {
		return err
	}

	m, err := api.svc.UploadMaterial(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("courseId"), ctx.FormValue("title"), up)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Material uploaded successfully", "material": m})
}

func (api *materialApi) query(ctx echo.Context) error {
	materials, err := api.svc.Materials(ctx.Request().Context(), ctx.Param("courseId"))
	if err != nil {
		return err
	}
	if materials == nil {
		materials = []course.Material{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"materials": materials})
}

func (api *materialApi) destroy(ctx echo.Context) error {
	err := api.svc.DeleteMaterial(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("courseId"), ctx.Param("materialId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Material deleted successfully"})
}
