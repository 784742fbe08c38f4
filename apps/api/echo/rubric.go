package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/access"
	"github.com/qacenter/qacenter/core/rubric"
)

type ScoreResponse struct {
	Score       float64     `json:"score"`
	TotalWeight float64     `json:"totalWeight"`
	Band        rubric.Band `json:"band"`
}

func (s *Server) registerRubricAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	rg := g.Group("/rubrics", jwt, s.roleMiddleware(access.CanEvaluate))
	rg.POST("/score", s.scoreRubric)
	rg.GET("/:channel", s.seedRubric)
}

// seedRubric returns a fresh working copy of the channel's rubric, every item graded "yes".
func (s *Server) seedRubric(ctx echo.Context) error {
	ch, err := rubric.ParseChannel(ctx.Param("channel"))
	if err != nil {
		return errHttpNotFound
	}
	inst, err := rubric.Seed(ch)
	if err != nil {
		return errors.Wrap(err, "seeding rubric")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (s *Server) scoreRubric(ctx echo.Context) error {
	var inst rubric.Instance
	if err := ctx.Bind(&inst); err != nil {
		return errors.Wrap(err, "binding to rubric.Instance")
	}
	if err := inst.Validate(); err != nil {
		return core.NewFieldError("items", err)
	}
	score := inst.Score()
	return ctx.JSON(http.StatusOK, ScoreResponse{
		Score:       score,
		TotalWeight: inst.TotalWeight(),
		Band:        rubric.BandFor(score),
	})
}
