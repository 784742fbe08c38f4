package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/access"
	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainStatus returns the HTTP status of the core packages' sentinel errors, 0 for anything else.
func domainStatus(cause error) int {
	switch cause {
	case access.ErrUnauthorized:
		return http.StatusForbidden
	case user.ErrNotFound, evaluation.ErrNotFound:
		return http.StatusNotFound
	}
	return 0
}

// errorResponse resolves the status and body of a client error.
// ok is false when err is not the client's fault.
func (s *Server) errorResponse(cause error) (code int, body interface{}, ok bool) {
	if code = domainStatus(cause); code != 0 {
		return code, cause.Error(), true
	}

	switch e := cause.(type) {
	case *echo.HTTPError:
		if e == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, e.Message, true
		}
		if inner, isHTTP := e.Internal.(*echo.HTTPError); isHTTP {
			e = inner
		}
		return e.Code, e.Message, true
	case validator.ValidationErrors:
		return http.StatusBadRequest, core.TranslateErrors(e, s.deps.Translator), true
	case *core.ValidationError:
		if fields := e.FieldMap(); fields != nil {
			return http.StatusBadRequest, fields, true
		}
		return http.StatusBadRequest, e.Error(), true
	}
	return 0, nil, false
}

// newAppHTTPErrorHandler answers client errors with their message and anything else with a logged 500.
// signalShutdown is called whenever a core.shutdown error is caught.
func (s *Server) newAppHTTPErrorHandler(signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := s.errorResponse(errors.Cause(err))
		if !ok {
			code = http.StatusInternalServerError
			body = http.StatusText(code)

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
			}
			s.deps.Logger.Error("request failed", err, usr, map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Request().URL.Path,
			})
			if ctx.Echo().Debug {
				body = err.Error()
			}
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}
		if msg, isStr := body.(string); isStr {
			body = echo.Map{"error": msg}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
