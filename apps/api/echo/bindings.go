package echoapi

import (
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/assignment"
)

func isMultipart(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formFiles opens the files posted under field as uploads.
// release closes them and must be called once the uploads have been consumed.
func formFiles(ctx echo.Context, field string) (uploads []core.Upload, release func(), err error) {
	release = func() {}
	if !isMultipart(ctx) {
		return nil, release, nil
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, release, errors.Wrap(err, "parsing multipart form")
	}

	var opened []multipart.File
	release = func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			release()
			return nil, func() {}, errors.Wrapf(err, "opening %q", fh.Filename)
		}
		opened = append(opened, f)
		uploads = append(uploads, core.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return uploads, release, nil
}

// formFile opens the single file posted under field.
func formFile(ctx echo.Context, field string) (core.Upload, func(), error) {
	uploads, release, err := formFiles(ctx, field)
	if err != nil {
		return core.Upload{}, release, err
	}
	if len(uploads) == 0 {
		release()
		return core.Upload{}, func() {}, core.NewError(core.KindInvalidArgument, "no file uploaded")
	}
	return uploads[0], release, nil
}

func fieldError(field, msg string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
}

func formFloat(ctx echo.Context, field string) (*float64, error) {
	val := strings.TrimSpace(ctx.FormValue(field))
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, fieldError(field, field+" must be a number")
	}
	return &f, nil
}

func formBool(ctx echo.Context, field string) (*bool, error) {
	val := strings.TrimSpace(ctx.FormValue(field))
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, fieldError(field, field+" must be a boolean")
	}
	return &b, nil
}

func formTime(ctx echo.Context, field string) (time.Time, error) {
	val := strings.TrimSpace(ctx.FormValue(field))
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, fieldError(field, field+" must be an RFC 3339 date")
	}
	return t, nil
}

// bindNewAssignment reads a NewAssignment from either a JSON or a multipart body.
func bindNewAssignment(ctx echo.Context) (na assignment.NewAssignment, err error) {
	if !isMultipart(ctx) {
		if err = ctx.Bind(&na); err != nil {
			return na, errors.Wrap(err, "binding to NewAssignment")
		}
		return na, nil
	}

	na.CourseID = ctx.FormValue("courseId")
	na.Title = ctx.FormValue("title")
	na.Description = ctx.FormValue("description")
	na.Instructions = ctx.FormValue("instructions")
	na.Status = ctx.FormValue("status")
	if na.MaxScore, err = formFloat(ctx, "maxScore"); err != nil {
		return na, err
	}
	if na.DueDate, err = formTime(ctx, "dueDate"); err != nil {
		return na, err
	}
	if na.AllowLateSubmission, err = formBool(ctx, "allowLateSubmission"); err != nil {
		return na, err
	}
	return na, nil
}

func bindNewSubmission(ctx echo.Context) (ns assignment.NewSubmission, err error) {
	if !isMultipart(ctx) {
		if err = ctx.Bind(&ns); err != nil {
			return ns, errors.Wrap(err, "binding to NewSubmission")
		}
		return ns, nil
	}
	ns.AssignmentID = ctx.FormValue("assignmentId")
	ns.Content = ctx.FormValue("content")
	return ns, nil
}

func bindUpdateSubmission(ctx echo.Context) (us assignment.UpdateSubmission, err error) {
	if !isMultipart(ctx) {
		if err = ctx.Bind(&us); err != nil {
			return us, errors.Wrap(err, "binding to UpdateSubmission")
		}
		return us, nil
	}
	if form, err := ctx.MultipartForm(); err == nil {
		if vals, ok := form.Value["content"]; ok && len(vals) > 0 {
			us.Content = &vals[0]
		}
	}
	return us, nil
}
