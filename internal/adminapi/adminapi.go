package adminapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/toughcrm/internal/app"
	"github.com/talkincode/toughcrm/internal/domain"
	"github.com/talkincode/toughcrm/internal/webserver"
)

const appContextKey = "appctx"

// Init registers every API route on srv. appCtx must already be initialized.
func Init(srv *webserver.Server, appCtx app.AppContext) {
	srv.Use(appContextMiddleware(appCtx))
	registerAuthRoutes(srv)
	registerClientRoutes(srv)
	registerInvoiceRoutes(srv)
	registerProductRoutes(srv)
	registerCSVRoutes(srv)
	registerStatusRoutes(srv)
	registerJobRoutes(srv)
	registerMetricRoutes(srv)
}

func appContextMiddleware(appCtx app.AppContext) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, appCtx)
			return next(c)
		}
	}
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appContextKey).(app.AppContext)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, webserver.ErrorResponse{Code: code, Message: message, Detail: detail})
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		return fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request validation failed", details)
	}
	return fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request validation failed", err.Error())
}

func errorDetail(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// handleDomainError maps the error taxonomy onto HTTP statuses. subject
// prefixes the conflict and not-found codes, e.g. CLIENT_EXISTS.
func handleDomainError(c echo.Context, err error, subject string) error {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return fail(c, http.StatusBadRequest, subject+"_EXISTS", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, subject+"_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
	case errors.Is(err, domain.ErrValidation):
		return fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	default:
		zap.L().Error("request failed",
			zap.String("path", c.Path()),
			zap.String("subject", subject),
			zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
