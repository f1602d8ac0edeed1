package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/toughcrm/internal/domain"
	"github.com/talkincode/toughcrm/internal/webserver"
)

// Fields are pointers so a missing field is told apart from an empty one.
// The limits match the CSV import rows.
type clientPayload struct {
	ID        *int64  `json:"id" validate:"required"`
	Documento *string `json:"documento" validate:"required,max=64"`
	FirstName *string `json:"first_name" validate:"required,max=100"`
	LastName  *string `json:"last_name" validate:"required,max=100"`
	Email     *string `json:"email" validate:"required,max=254"`
	Password  *string `json:"password" validate:"required,maxbytes=72"`
}

// registerClientRoutes registers client endpoints
func registerClientRoutes(srv *webserver.Server) {
	srv.ApiGET("/clientes", listClients)
	srv.ApiGET("/clientes/:id", getClient)
	srv.ApiPOST("/clientes", createClient)
}

func listClients(c echo.Context) error {
	return ok(c, GetAppContext(c).Clients().List())
}

func getClient(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "INVALID_ID", "Invalid client ID", nil)
	}
	client, err := GetAppContext(c).Clients().Get(id)
	if err != nil {
		return handleDomainError(c, err, "CLIENT")
	}
	return ok(c, client)
}

func createClient(c echo.Context) error {
	var payload clientPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "INVALID_REQUEST", "Unable to parse client", errorDetail(err))
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	client := domain.Client{
		ID:        *payload.ID,
		Documento: strings.TrimSpace(*payload.Documento),
		FirstName: strings.TrimSpace(*payload.FirstName),
		LastName:  strings.TrimSpace(*payload.LastName),
		Email:     strings.TrimSpace(*payload.Email),
	}
	created, err := GetAppContext(c).CreateClient(client, *payload.Password)
	if err != nil {
		return handleDomainError(c, err, "CLIENT")
	}
	return ok(c, created)
}
