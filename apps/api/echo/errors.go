package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

var (
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errSessionNotFound      = echo.NewHTTPError(http.StatusNotFound, "session not found")
	errCardNotRegistered    = echo.NewHTTPError(http.StatusNotFound, "card not registered")
	errNoOngoingSession     = echo.NewHTTPError(http.StatusConflict, "no ongoing session for this student")
	errTransitionNotAllowed = echo.NewHTTPError(http.StatusConflict, "transition not allowed from current status")
	errNotEnrolled          = echo.NewHTTPError(http.StatusBadRequest, "student not enrolled in this class")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if herr, ok := domainHTTPError(origErr); ok {
				code = herr.Code
				message = herr.Message
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			logger.Error(msg, errors.Wrap(err, msg))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// domainHTTPError maps attendance sentinel errors to their HTTP equivalents.
func domainHTTPError(err error) (*echo.HTTPError, bool) {
	switch err {
	case attendance.ErrNotFound:
		return errSessionNotFound, true
	case attendance.ErrInvalidTransition:
		return errTransitionNotAllowed, true
	case attendance.ErrNotEnrolled:
		return errNotEnrolled, true
	case attendance.ErrCardNotRegistered:
		return errCardNotRegistered, true
	case attendance.ErrNoOngoingSession:
		return errNoOngoingSession, true
	}
	return nil, false
}
