package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core/access"
	"github.com/qacenter/qacenter/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
	tokenAudience   = "qa-center"
)

// Claims represents the authorization claims transmitted via the session JWT.
type Claims struct {
	jwt.StandardClaims
	Username string    `json:"username,omitempty"`
	Name     string    `json:"name,omitempty"`
	Role     user.Role `json:"role"`
}

func (c Claims) expiresAt() time.Time { return time.Unix(c.ExpiresAt, 0) }

func (s *Server) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(s.deps.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
		TokenLookup:   "cookie:" + s.deps.Conf.Server.SessionCookieName,
	}
}

func (s *Server) GetUserClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.deps.Conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(s.deps.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Name:     usr.Name,
		Role:     usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (s *Server) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(s.deps.Conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// SessionCookie wraps a signed token in the HttpOnly session cookie.
func (s *Server) SessionCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.deps.Conf.Server.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.deps.Conf.Server.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) clearSessionCookie(ctx echo.Context) {
	cookie := s.SessionCookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	ctx.SetCookie(cookie)
}

func (s *Server) authenticate(ctx echo.Context, uname, pwd string) (user.User, error) {
	usr, err := s.deps.UserSvc.GetByUsernameOrEmail(ctx.Request().Context(), uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	usr, err = s.deps.UserSvc.SetLastLogin(ctx.Request().Context(), usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getPrincipal is the current user capability every access rule is checked against.
// It is read from the stored user, not the token, so deleted users and role changes apply at once.
func (s *Server) getPrincipal(ctx echo.Context) (access.Principal, error) {
	usr, err := s.getContextUser(ctx)
	if err != nil {
		return access.Principal{}, err
	}
	return access.Principal{ID: usr.ID, Role: usr.Role}, nil
}

func (s *Server) getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}
