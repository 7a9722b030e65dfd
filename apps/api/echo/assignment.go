package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
	"github.com/ThumulaGamage/EduPlatform-backend/services/metrics"
)

const attachmentsField = "attachments"

type assignmentApi struct {
	svc *assignment.Service
}

// registerAssignmentAPI expects g to be authenticated.
func registerAssignmentAPI(g *echo.Group, svc *assignment.Service) {
	api := assignmentApi{svc: svc}

	ag := g.Group("/assignments")
	ag.POST("", api.create)
	ag.GET("/course/:courseId", api.byCourse)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.GET("/:id/submissions", api.submissions)

	sg := g.Group("/submissions")
	sg.POST("", api.submit)
	sg.GET("/my-submissions", api.mySubmissions)
	sg.GET("/:id", api.retrieveSubmission)
	sg.PUT("/:id", api.updateSubmission)
	sg.DELETE("/:id", api.destroySubmission)
	sg.POST("/:id/grade", api.grade)
}

// Assignments

func (api *assignmentApi) create(ctx echo.Context) error {
	data, err := bindNewAssignment(ctx)
	if err != nil {
		return err
	}
	files, release, err := formFiles(ctx, attachmentsField)
	defer release()
	if err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), getPrincipal(ctx), data, files)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"assignment": a})
}

func (api *assignmentApi) byCourse(ctx echo.Context) error {
	views, err := api.svc.CourseAssignments(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("courseId"))
	if err != nil {
		return err
	}
	if views == nil {
		views = []assignment.StudentView{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"assignments": views})
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"assignment": a})
}

func (api *assignmentApi) update(ctx echo.Context) error {
	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	a, err := api.svc.Update(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"assignment": a})
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Assignment deleted successfully"})
}

func (api *assignmentApi) submissions(ctx echo.Context) error {
	report, err := api.svc.Submissions(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	if report.Submissions == nil {
		report.Submissions = []assignment.SubmissionView{}
	}
	return ctx.JSON(http.StatusOK, report)
}

// Submissions

func (api *assignmentApi) submit(ctx echo.Context) error {
	data, err := bindNewSubmission(ctx)
	if err != nil {
		return err
	}
	files, release, err := formFiles(ctx, attachmentsField)
	defer release()
	if err != nil {
		return err
	}

	s, err := api.svc.Submit(ctx.Request().Context(), getPrincipal(ctx), data, files)
	if err != nil {
		return err
	}
	metrics.RecordSubmission(s.IsLate)
	return ctx.JSON(http.StatusCreated, echo.Map{"message": "Assignment submitted successfully", "submission": s})
}

func (api *assignmentApi) mySubmissions(ctx echo.Context) error {
	subs, err := api.svc.MySubmissions(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []assignment.Submission{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"submissions": subs})
}

func (api *assignmentApi) retrieveSubmission(ctx echo.Context) error {
	s, err := api.svc.GetSubmission(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"submission": s})
}

func (api *assignmentApi) updateSubmission(ctx echo.Context) error {
	data, err := bindUpdateSubmission(ctx)
	if err != nil {
		return err
	}
	files, release, err := formFiles(ctx, attachmentsField)
	defer release()
	if err != nil {
		return err
	}

	s, err := api.svc.UpdateSubmission(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data, files)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Submission updated successfully", "submission": s})
}

func (api *assignmentApi) destroySubmission(ctx echo.Context) error {
	if err := api.svc.DeleteSubmission(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Submission deleted successfully"})
}

func (api *assignmentApi) grade(ctx echo.Context) error {
	var data assignment.GradeInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}

	s, err := api.svc.Grade(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	metrics.RecordGrade()
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Submission graded successfully", "submission": s})
}
