package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/toughcrm/internal/domain"
	"github.com/talkincode/toughcrm/internal/webserver"
)

// client_id is not checked against the client registry
type invoicePayload struct {
	ID          *int64  `json:"id" validate:"required"`
	ClientID    *int64  `json:"client_id" validate:"required"`
	CompanyName *string `json:"company_name" validate:"required,max=200"`
	Nit         *string `json:"nit" validate:"required,max=64"`
	Code        *string `json:"code" validate:"required,max=64"`
}

func registerInvoiceRoutes(srv *webserver.Server) {
	srv.ApiGET("/facturas", listInvoices)
	srv.ApiGET("/facturas/:id", getInvoice)
	srv.ApiPOST("/facturas", createInvoice)
}

func listInvoices(c echo.Context) error {
	return ok(c, GetAppContext(c).Invoices().List())
}

func getInvoice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "INVALID_ID", "Invalid invoice ID", nil)
	}
	invoice, err := GetAppContext(c).Invoices().Get(id)
	if err != nil {
		return handleDomainError(c, err, "INVOICE")
	}
	return ok(c, invoice)
}

func createInvoice(c echo.Context) error {
	var payload invoicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusUnprocessableEntity, "INVALID_REQUEST", "Unable to parse invoice", errorDetail(err))
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	created, err := GetAppContext(c).CreateInvoice(domain.Invoice{
		ID:          *payload.ID,
		ClientID:    *payload.ClientID,
		CompanyName: strings.TrimSpace(*payload.CompanyName),
		Nit:         strings.TrimSpace(*payload.Nit),
		Code:        strings.TrimSpace(*payload.Code),
	})
	if err != nil {
		return handleDomainError(c, err, "INVOICE")
	}
	return ok(c, created)
}
