package adminapi

import (
	"net/http"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/toughcrm/internal/auth"
	"github.com/talkincode/toughcrm/internal/domain"
	"github.com/talkincode/toughcrm/internal/webserver"
)

const claimsContextKey = "claims"

type registerPayload struct {
	Email    *string `json:"email" validate:"required,max=254"`
	Password *string `json:"password" validate:"required,maxbytes=72"`
}

type userView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func registerAuthRoutes(srv *webserver.Server) {
	srv.ApiPOST("/register", registerUser)
	srv.ApiPOST("/token", issueToken)
	srv.ApiGET("/protected", protectedProbe, bearerAuth())
}

// bearerAuth rejects requests whose Authorization header does not carry a
// token minted by the user store.
func bearerAuth() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsContextKey,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := GetAppContext(c).Users().VerifyToken(token)
			if err != nil {
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			zap.L().Debug("bearer token rejected", zap.String("path", c.Path()), zap.Error(err))
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing bearer token", nil)
		},
	})
}

func registerUser(c echo.Context) error {
	var payload registerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "INVALID_REQUEST", "Unable to parse register parameters", errorDetail(err))
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	user, err := GetAppContext(c).RegisterUser(*payload.Email, *payload.Password)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fail(c, http.StatusBadRequest, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return handleDomainError(c, err, "USER")
	}
	return ok(c, userView{ID: user.ID, Email: user.Email})
}

// issueToken follows the OAuth2 password form: username carries the email
func issueToken(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if username == "" || password == "" {
		return fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "username and password are required", nil)
	}
	token, err := GetAppContext(c).Users().IssueToken(username, password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Incorrect username or password", nil)
		}
		return handleDomainError(c, err, "USER")
	}
	return ok(c, token)
}

func protectedProbe(c echo.Context) error {
	claims, _ := c.Get(claimsContextKey).(*auth.Claims)
	if claims != nil {
		zap.L().Debug("protected access", zap.Int64("user_id", claims.UserID()), zap.String("email", claims.Email))
	}
	return ok(c, map[string]string{"message": "Access granted"})
}
