package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core/access"
	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/user"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) registerEvaluationAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	evaluator := s.roleMiddleware(access.CanEvaluate)

	eg := g.Group("/evaluations", jwt)
	eg.GET("/agents", s.queryAgents, evaluator)
	eg.POST("", s.createEvaluation, evaluator)
	eg.GET("/me", s.queryOwnEvaluations)
	eg.GET("/:id", s.retrieveEvaluation)

	g.GET("/users/:id/evaluations", s.queryUserEvaluations, jwt)
	g.GET("/users/:id/evaluations/export", s.exportUserEvaluations, jwt, evaluator)
}

// Handlers

// queryAgents lists the users the current user may evaluate.
func (s *Server) queryAgents(ctx echo.Context) error {
	p, err := s.getPrincipal(ctx)
	if err != nil {
		return err
	}
	filter, err := access.EvaluatableFilter(p)
	if err != nil {
		return err
	}
	users, err := s.deps.UserSvc.Query(ctx.Request().Context(), filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying evaluatable users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *Server) createEvaluation(ctx echo.Context) error {
	p, err := s.getPrincipal(ctx)
	if err != nil {
		return err
	}

	var data evaluation.NewEvaluation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}

	// checked against the agent the service resolved from the cleaned input
	canEvaluate := func(agent user.User) error {
		return access.Require(access.CanEvaluateUser(p, agent))
	}
	ev, err := s.deps.EvaluationSvc.Create(ctx.Request().Context(), p.ID, data, canEvaluate)
	if err != nil {
		return errors.Wrap(err, "creating evaluation")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (s *Server) queryOwnEvaluations(ctx echo.Context) error {
	p, err := s.getPrincipal(ctx)
	if err != nil {
		return err
	}
	return s.listEvaluations(ctx, p.ID)
}

func (s *Server) queryUserEvaluations(ctx echo.Context) error {
	p, err := s.getPrincipal(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if err = access.Require(access.CanViewUserEvaluations(p, id)); err != nil {
		return err
	}
	if _, err = s.deps.UserSvc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return s.listEvaluations(ctx, id)
}

func (s *Server) listEvaluations(ctx echo.Context, userID string) error {
	rows, err := s.deps.EvaluationSvc.ListForEvaluatedUser(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying evaluations")
	}
	if rows == nil {
		rows = []evaluation.Summary{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

// retrieveEvaluation never returns a record its reader may not see.
func (s *Server) retrieveEvaluation(ctx echo.Context) error {
	p, err := s.getPrincipal(ctx)
	if err != nil {
		return err
	}
	det, err := s.deps.EvaluationSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding evaluation by ID")
	}
	if err = access.Require(access.CanViewEvaluation(p, det.EvaluatedUserID)); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, det)
}

func (s *Server) exportUserEvaluations(ctx echo.Context) error {
	fname, content, err := s.deps.EvaluationSvc.Export(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "exporting evaluations")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(fname))
	return ctx.Blob(http.StatusOK, xlsxContentType, content)
}
