package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/qacenter/qacenter/core/access"
)

// roleMiddleware lets the request through when allowed(principal) holds.
func (s *Server) roleMiddleware(allowed func(access.Principal) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := s.getPrincipal(ctx)
			if err != nil {
				return err
			}
			if !allowed(p) {
				return access.ErrUnauthorized
			}
			return next(ctx)
		}
	}
}

// requestLogMiddleware writes one zap line per request, tagged with the request id.
func requestLogMiddleware(zl *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			req, res := ctx.Request(), ctx.Response()
			fields := []zap.Field{
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", ctx.RealIP()),
			}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				fields = append(fields, zap.String("user_id", claims.Subject))
			}
			switch {
			case res.Status >= 500:
				zl.Error("request", fields...)
			case res.Status >= 400:
				zl.Warn("request", fields...)
			default:
				zl.Info("request", fields...)
			}
			return nil
		}
	}
}

// metricsMiddleware observes every request under its route pattern.
func (s *Server) metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			s.deps.Metrics.ObserveHTTPRequest(ctx.Request().Method, route, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}
