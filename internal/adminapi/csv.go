package adminapi

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/toughcrm/internal/csvbridge"
	"github.com/talkincode/toughcrm/internal/webserver"
)

const (
	maxUploadSize = 32 << 20
	mimeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type importResponse struct {
	Message string `json:"message"`
	csvbridge.ImportResult
}

func registerCSVRoutes(srv *webserver.Server) {
	srv.ApiGET("/export_clients_csv", exportClientsCSV)
	srv.ApiGET("/export_clients_xlsx", exportClientsXLSX)
	srv.ApiPOST("/upload_clients_csv", uploadClientsCSV)
}

// exportClientsCSV streams the summary, flushing the response after each row
func exportClientsCSV(c echo.Context) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition, "attachment;filename="+csvbridge.ExportFilename)
	resp.WriteHeader(http.StatusOK)

	err := GetAppContext(c).Bridge().ExportClientSummary(c.Request().Context(), resp, resp.Flush)
	if err != nil {
		// headers are gone already, the client sees a truncated file
		zap.L().Error("export clients csv", zap.Error(err))
	}
	return nil
}

func exportClientsXLSX(c echo.Context) error {
	var buf bytes.Buffer
	if err := GetAppContext(c).Bridge().ExportClientSummaryXLSX(&buf); err != nil {
		return handleDomainError(c, err, "EXPORT")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment;filename="+csvbridge.ExportXLSXFilename)
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func uploadClientsCSV(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusUnprocessableEntity, "MISSING_FILE", "Multipart field 'file' is required", nil)
	}
	if fh.Size > maxUploadSize {
		return fail(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Uploaded file is too large", nil)
	}
	src, err := fh.Open()
	if err != nil {
		return handleDomainError(c, err, "IMPORT")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		return handleDomainError(c, err, "IMPORT")
	}

	result, err := GetAppContext(c).ImportClients(c.Request().Context(), data)
	if err != nil {
		return handleDomainError(c, err, "IMPORT")
	}
	zap.L().Info("clients imported",
		zap.String("filename", fh.Filename),
		zap.Int("imported", result.Imported),
		zap.Int("replaced", result.Replaced))
	return ok(c, importResponse{Message: "Clientes cargados exitosamente", ImportResult: result})
}
