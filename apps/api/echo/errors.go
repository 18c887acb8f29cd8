package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/evaluation"
)

var (
	errUnauthorized           = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	errStudentSessionRequired = echo.NewHTTPError(http.StatusUnauthorized, evaluation.CodeStudentSessionRequired)
	errHttpForbidden          = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// rejectionStatus maps the engine's failure taxonomy to HTTP codes. All of
// them are client-correctable; none leaks storage detail.
func rejectionStatus(code string) int {
	switch code {
	case evaluation.CodeStudentSessionRequired:
		return http.StatusUnauthorized
	case evaluation.CodeInvalidRoster:
		return http.StatusBadRequest
	default: // resolution + context failures
		return http.StatusUnprocessableEntity
	}
}

func rejectionBody(rej *evaluation.Rejection) echo.Map {
	body := echo.Map{"success": false, "error": rej.Code}
	if rej.Name != "" {
		body["name"] = rej.Name
	}
	if len(rej.Unknown) > 0 {
		body["unknown"] = rej.Unknown
	}
	if len(rej.Details) > 0 {
		body["details"] = rej.Details
	}
	return body
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how
// to handle our errors. signalShutdown is called in order to gracefully shut
// the Server down whenever a core shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var body echo.Map

		switch origErr := errors.Cause(err).(type) {
		case *evaluation.Rejection:
			code = rejectionStatus(origErr.Code)
			body = rejectionBody(origErr)
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				body = echo.Map{"success": false, "error": evaluation.CodeStudentSessionRequired}
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			body = echo.Map{"success": false, "error": origErr.Message}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			body = echo.Map{"success": false, "error": fldErrs}
		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				body = echo.Map{"success": false, "error": fldErrs}
			} else {
				body = echo.Map{"success": false, "error": origErr.Error()}
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			body = echo.Map{"success": false, "error": msg}

			args := []interface{}{errors.Wrap(err, msg)}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				args = append(args, claims.Session())
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			body["error"] = err.Error()
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
