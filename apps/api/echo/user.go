package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/access"
	"github.com/qacenter/qacenter/core/user"
)

var userOrderingFields = []string{"name", "username", "email", "role", "created_at", "last_login"}

func (s *Server) registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", s.login)
	ug.POST("/logout", s.logout)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.GET("/me", s.me)

	mg := ag.Group("", s.roleMiddleware(access.CanManageUsers))
	mg.GET("", s.queryUsers)
	mg.POST("", s.createUser)
	mg.GET("/roles", s.queryRoles)
	mg.DELETE("/:id", s.destroyUser)
}

// Handlers

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	usr, err := s.authenticate(ctx, data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	claims := s.GetUserClaims(usr)
	token, err := s.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	ctx.SetCookie(s.SessionCookie(token, claims.expiresAt()))
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) logout(ctx echo.Context) error {
	s.clearSessionCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) me(ctx echo.Context) error {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, userOrderingFields...)

	users, err := s.deps.UserSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (s *Server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), s.deps.Validate, s.deps.UserSvc); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *Server) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.RoleInfos)
}

func (s *Server) destroyUser(ctx echo.Context) error {
	p, err := s.getPrincipal(ctx)
	if err != nil {
		return err
	}
	id := ctx.Param("id")
	if err = access.Require(access.CanDeleteUser(p, id)); err != nil {
		return err
	}
	if err = s.deps.UserSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
