package echoportal

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/listing"
	"github.com/NVK2907/sms-app-sub000/core/session"
	"github.com/NVK2907/sms-app-sub000/services/api"
)

var (
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errInvalidID       = echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	errInvalidPage     = echo.NewHTTPError(http.StatusBadRequest, "invalid page")
	errInvalidDialog   = echo.NewHTTPError(http.StatusBadRequest, "dialog must be one of add, edit, view")
	errTooManyRequests = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var apiErr *api.Error
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
			switch {
			case errors.Is(err, listing.ErrPageOutOfRange):
				code = http.StatusBadRequest
				message = listing.ErrPageOutOfRange.Error()
			case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
				code = apiErr.Status
				message = core.UserMessage(err, http.StatusText(apiErr.Status))
			case errors.As(err, &apiErr):
				// the backend is down or broken
				code = http.StatusBadGateway
				message = http.StatusText(http.StatusBadGateway)
				logger.Error(message.(string), errors.Wrap(err, "calling backend"), contextIdentity(ctx))
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), contextIdentity(ctx))
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
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

func contextIdentity(ctx echo.Context) session.Identity {
	if ws := getWorkspace(ctx); ws != nil {
		if usr := ws.gate.State().Identity; usr != nil {
			return *usr
		}
	}
	return session.Identity{}
}
