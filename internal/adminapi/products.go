package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/toughcrm/internal/domain"
	"github.com/talkincode/toughcrm/internal/webserver"
)

type productPayload struct {
	ID          *int64  `json:"id" validate:"required"`
	Name        *string `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
}

// registerProductRoutes registers simple product endpoints
func registerProductRoutes(srv *webserver.Server) {
	srv.ApiGET("/productos", listProducts)
	srv.ApiGET("/productos/:id", getProduct)
	srv.ApiPOST("/productos", createProduct)
}

func listProducts(c echo.Context) error {
	return ok(c, GetAppContext(c).Products().List())
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := GetAppContext(c).Products().Get(id)
	if err != nil {
		return handleDomainError(c, err, "PRODUCT")
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "INVALID_REQUEST", "Unable to parse product", errorDetail(err))
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	p, err := GetAppContext(c).CreateProduct(domain.Product{
		ID:          *payload.ID,
		Name:        strings.TrimSpace(*payload.Name),
		Description: strings.TrimSpace(payload.Description),
	})
	if err != nil {
		return handleDomainError(c, err, "PRODUCT")
	}
	return ok(c, p)
}
