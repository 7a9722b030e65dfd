package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
)

const (
	msgValidationFailed = "validation failed"
	msgInternalError    = "internal server error"
)

var statusByKind = map[core.Kind]int{
	core.KindUnauthenticated:   http.StatusUnauthorized,
	core.KindInvalidToken:      http.StatusUnauthorized,
	core.KindForbidden:         http.StatusForbidden,
	core.KindNotFound:          http.StatusNotFound,
	core.KindInvalidArgument:   http.StatusBadRequest,
	core.KindAlreadyExists:     http.StatusBadRequest,
	core.KindDuplicateReview:   http.StatusBadRequest,
	core.KindDuplicateIdentity: http.StatusBadRequest,
	core.KindInvalidCredential: http.StatusBadRequest,
	core.KindInvalidRole:       http.StatusBadRequest,
	core.KindInvalidTeacher:    http.StatusBadRequest,
	core.KindInvalidTransition: http.StatusBadRequest,
	core.KindDeadlinePassed:    http.StatusBadRequest,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		body := echo.Map{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			body["message"] = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			body["message"] = msgValidationFailed
			body["errors"] = fldErrs
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				body["message"] = msgValidationFailed
				body["errors"] = fldErrs
			} else {
				body["message"] = origErr.Error()
			}
		case *core.Error:
			if status, ok := statusByKind[origErr.Kind]; ok {
				code = status
				body["message"] = origErr.Message
			}
		}

		if code >= http.StatusInternalServerError {
			if _, ok := body["message"]; !ok {
				body["message"] = http.StatusText(code)
			}
			body["error"] = msgInternalError

			p := getPrincipal(ctx)
			logger.Error(msgInternalError, errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()),
				account.Account{ID: p.ID, Email: p.Email, Role: p.Role})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
