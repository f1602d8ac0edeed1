package adminapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/talkincode/toughcrm/config"
	"github.com/talkincode/toughcrm/internal/app"
	"github.com/talkincode/toughcrm/internal/webserver"
)

const (
	anaJSON  = `{"id":1,"documento":"D1","first_name":"Ana","last_name":"Lee","email":"a@x.com","password":"p"}`
	acmeJSON = `{"id":10,"client_id":1,"company_name":"Acme","nit":"N1","code":"C1"}`
)

func newTestServer(t *testing.T) (*echo.Echo, *app.Application) {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = ""
	cfg.Database.Type = "memory"
	cfg.Security.BcryptCost = bcrypt.MinCost

	application := app.NewApplication(&cfg)
	require.NoError(t, application.Init())
	t.Cleanup(application.Release)

	srv := webserver.NewServer(&cfg)
	Init(srv, application)
	return srv.Echo(), application
}

func doRequest(e *echo.Echo, method, target, contentType string, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postJSON(e *echo.Echo, target, body string) *httptest.ResponseRecorder {
	return doRequest(e, http.MethodPost, target, echo.MIMEApplicationJSON, []byte(body), nil)
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	return doRequest(e, http.MethodGet, target, "", nil, nil)
}

func postForm(e *echo.Echo, target string, form url.Values) *httptest.ResponseRecorder {
	return doRequest(e, http.MethodPost, target, echo.MIMEApplicationForm, []byte(form.Encode()), nil)
}

func postFile(t *testing.T, e *echo.Echo, target, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return doRequest(e, http.MethodPost, target, mw.FormDataContentType(), buf.Bytes(), nil)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) webserver.ErrorResponse {
	t.Helper()
	var body webserver.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestCreateClient_DuplicateIDReturns400(t *testing.T) {
	e, _ := newTestServer(t)

	rec := postJSON(e, "/clientes", anaJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.EqualValues(t, 1, created["id"])
	assert.Equal(t, "Ana", created["first_name"])
	assert.Equal(t, "a@x.com", created["email"])
	assert.NotContains(t, created, "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = postJSON(e, "/clientes", `{"id":1,"documento":"D2","first_name":"Bo","last_name":"Ng","email":"b@x.com","password":"q"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CLIENT_EXISTS", decodeError(t, rec).Code)

	// the original record survives
	rec = get(e, "/clientes/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"documento":"D1"`)
}

func TestCreateClient_Validation(t *testing.T) {
	e, application := newTestServer(t)

	cases := map[string]string{
		"missing id":        `{"documento":"D1","first_name":"Ana","last_name":"Lee","email":"a@x.com","password":"p"}`,
		"missing password":  `{"id":1,"documento":"D1","first_name":"Ana","last_name":"Lee","email":"a@x.com"}`,
		"missing documento": `{"id":1,"first_name":"Ana","last_name":"Lee","email":"a@x.com","password":"p"}`,
		"password too long": `{"id":1,"documento":"D1","first_name":"Ana","last_name":"Lee","email":"a@x.com","password":"` + strings.Repeat("ñ", 40) + `"}`,
		"wrong id type":     `{"id":"one","documento":"D1","first_name":"Ana","last_name":"Lee","email":"a@x.com","password":"p"}`,
		"broken json":       `{"id":1,`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := postJSON(e, "/clientes", body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 0, application.Clients().Len())
}

// The HTTP payload checks presence and type only, the same as CSV import
func TestCreateClient_AcceptsWhatImportAccepts(t *testing.T) {
	e, _ := newTestServer(t)

	rec := postJSON(e, "/clientes", `{"id":2,"documento":"","first_name":"Bo","last_name":"","email":"e","password":"q"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postFile(t, e, "/upload_clients_csv", "file", "clientes.csv",
		[]byte("id,documento,first_name,last_name,email,password\n3,,Cy,,e,q\n"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetClient(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/clientes/42")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CLIENT_NOT_FOUND", decodeError(t, rec).Code)

	rec = get(e, "/clientes/abc")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_ID", decodeError(t, rec).Code)
}

func TestListClients(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/clientes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, body := range []string{
		`{"id":3,"documento":"D3","first_name":"C","last_name":"C","email":"c@x.com","password":"p"}`,
		`{"id":2,"documento":"D2","first_name":"B","last_name":"B","email":"b@x.com","password":"p"}`,
	} {
		require.Equal(t, http.StatusOK, postJSON(e, "/clientes", body).Code)
	}

	rec = get(e, "/clientes")
	require.Equal(t, http.StatusOK, rec.Code)
	var clients []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clients))
	require.Len(t, clients, 2)
	assert.EqualValues(t, 2, clients[0]["id"])
	assert.EqualValues(t, 3, clients[1]["id"])
}

func TestInvoices(t *testing.T) {
	e, _ := newTestServer(t)

	// client_id is not checked
	rec := postJSON(e, "/facturas", acmeJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, acmeJSON, rec.Body.String())

	rec = postJSON(e, "/facturas", acmeJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVOICE_EXISTS", decodeError(t, rec).Code)

	rec = get(e, "/facturas/10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, acmeJSON, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(e, "/facturas/11").Code)

	rec = get(e, "/facturas")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "["+acmeJSON+"]", rec.Body.String())

	rec = postJSON(e, "/facturas", `{"id":11,"company_name":"Acme","nit":"N1","code":"C1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestProducts(t *testing.T) {
	e, _ := newTestServer(t)

	body := `{"id":5,"name":"Widget","description":"small"}`
	rec := postJSON(e, "/productos", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, body, rec.Body.String())

	rec = postJSON(e, "/productos", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PRODUCT_EXISTS", decodeError(t, rec).Code)

	rec = get(e, "/productos/5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())

	rec = get(e, "/productos/6")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decodeError(t, rec).Code)

	rec = postJSON(e, "/productos", `{"id":6,"description":"no name"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = get(e, "/productos")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "["+body+"]", rec.Body.String())
}

func TestRegister(t *testing.T) {
	e, _ := newTestServer(t)

	rec := postJSON(e, "/register", `{"email":"u@x.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "u@x.com", user["email"])
	assert.NotZero(t, user["id"])
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = postJSON(e, "/register", `{"email":"u@x.com","password":"other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMAIL_EXISTS", decodeError(t, rec).Code)

	rec = postJSON(e, "/register", `{"email":"v@x.com"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// 40 characters but 80 bytes, over the bcrypt limit
	rec = postJSON(e, "/register", `{"email":"w@x.com","password":"`+strings.Repeat("ñ", 40)+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)

	rec = postJSON(e, "/register", `{"email":"","password":"p"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTokenAndProtected(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, postJSON(e, "/register", `{"email":"u@x.com","password":"secret"}`).Code)

	rec := postForm(e, "/token", url.Values{"username": {"u@x.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)

	rec = postForm(e, "/token", url.Values{"username": {"nobody@x.com"}, "password": {"secret"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postForm(e, "/token", url.Values{"username": {"u@x.com"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = postForm(e, "/token", url.Values{"username": {"u@x.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.EqualValues(t, 3600, token.ExpiresIn)
	assert.NotContains(t, token.AccessToken, "secret")

	rec = doRequest(e, http.MethodGet, "/protected", "", nil, http.Header{"Authorization": {"Bearer " + token.AccessToken}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Access granted"}`, rec.Body.String())

	rec = get(e, "/protected")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))

	for _, h := range []string{"Bearer garbage", "Bearer " + token.AccessToken + "x", token.AccessToken} {
		rec = doRequest(e, http.MethodGet, "/protected", "", nil, http.Header{"Authorization": {h}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, h)
	}
}

func TestExportClientsCSV_Scenario(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, postJSON(e, "/clientes", anaJSON).Code)
	require.Equal(t, http.StatusOK, postJSON(e, "/facturas", acmeJSON).Code)

	rec := get(e, "/export_clients_csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment;filename=clientes.csv", rec.Header().Get(echo.HeaderContentDisposition))
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/csv"))
	assert.Equal(t, "ID,Documento,Nombre Completo,Cantidad de Facturas\n1,D1,Ana Lee,1\n", rec.Body.String())
}

func TestExportClientsCSV_Empty(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/export_clients_csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ID,Documento,Nombre Completo,Cantidad de Facturas\n", rec.Body.String())
}

func TestExportClientsXLSX(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, postJSON(e, "/clientes", anaJSON).Code)
	require.Equal(t, http.StatusOK, postJSON(e, "/facturas", acmeJSON).Code)

	rec := get(e, "/export_clients_xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimeXLSX, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "attachment;filename=clientes.xlsx", rec.Header().Get(echo.HeaderContentDisposition))

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "Nombre Completo", book.GetCellValue("Clientes", "C1"))
	assert.Equal(t, "Ana Lee", book.GetCellValue("Clientes", "C2"))
}

func TestUploadClientsCSV(t *testing.T) {
	e, application := newTestServer(t)
	require.Equal(t, http.StatusOK, postJSON(e, "/clientes", anaJSON).Code)

	content := "id,documento,first_name,last_name,email,password\n" +
		"1,D1-new,Ana,Lee,a@x.com,p\n" +
		"2,D2,Bo,Ng,b@x.com,q\n"
	rec := postFile(t, e, "/upload_clients_csv", "file", "clientes.csv", []byte(content))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Clientes cargados exitosamente","imported":2,"replaced":1}`, rec.Body.String())

	// import upserts, so id 1 is overwritten
	client, err := application.Clients().Get(1)
	require.NoError(t, err)
	assert.Equal(t, "D1-new", client.Documento)
	assert.Equal(t, 2, application.Clients().Len())
}

func TestUploadClientsCSV_RejectsMalformedFile(t *testing.T) {
	e, application := newTestServer(t)

	content := "id,documento,first_name,last_name,email,password\n" +
		"1,D1,Ana,Lee,a@x.com,p\n" +
		"x,D2,Bo,Ng,b@x.com,q\n"
	rec := postFile(t, e, "/upload_clients_csv", "file", "clientes.csv", []byte(content))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "row 3")
	assert.Equal(t, 0, application.Clients().Len())

	long := "id,documento,first_name,last_name,email,password\n" +
		"1,D1,Ana,Lee,a@x.com," + strings.Repeat("ñ", 40) + "\n"
	rec = postFile(t, e, "/upload_clients_csv", "file", "clientes.csv", []byte(long))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, 0, application.Clients().Len())

	rec = postFile(t, e, "/upload_clients_csv", "other", "clientes.csv", []byte(content))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "MISSING_FILE", decodeError(t, rec).Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	e, application := newTestServer(t)
	require.Equal(t, http.StatusOK, postJSON(e, "/clientes", anaJSON).Code)
	require.Equal(t, http.StatusOK, postJSON(e, "/clientes",
		`{"id":2,"documento":"D2","first_name":"Bo","last_name":"Ng","email":"b@x.com","password":"q"}`).Code)

	exported := get(e, "/export_clients_csv").Body.Bytes()

	other, otherApp := newTestServer(t)
	rec := postFile(t, other, "/upload_clients_csv", "file", "clientes.csv", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	want := application.Clients().List()
	got := otherApp.Clients().List()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Documento, got[i].Documento)
		assert.Equal(t, want[i].FullName(), got[i].FullName())
	}
}

func TestReimportExportKeepsCredentials(t *testing.T) {
	e, application := newTestServer(t)
	require.Equal(t, http.StatusOK, postJSON(e, "/clientes", anaJSON).Code)

	exported := get(e, "/export_clients_csv").Body.Bytes()
	rec := postFile(t, e, "/upload_clients_csv", "file", "clientes.csv", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Clientes cargados exitosamente","imported":1,"replaced":1}`, rec.Body.String())

	client, err := application.Clients().Get(1)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", client.Email)
	assert.Equal(t, "D1", client.Documento)
	require.NotEmpty(t, client.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte("p")))
}

func TestStatus(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, postJSON(e, "/clientes", anaJSON).Code)
	require.Equal(t, http.StatusOK, postJSON(e, "/register", `{"email":"u@x.com","password":"secret"}`).Code)

	rec := get(e, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status statusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 1, status.Clients)
	assert.Equal(t, 0, status.Invoices)
	assert.Equal(t, 1, status.Users)
	assert.Equal(t, "memory", status.Storage)
}

func TestUnknownRoute(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	rec = doRequest(e, http.MethodDelete, "/clientes", "", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func bearerHeader(t *testing.T, e *echo.Echo) http.Header {
	t.Helper()
	require.Equal(t, http.StatusOK, postJSON(e, "/register", `{"email":"admin@x.com","password":"secret"}`).Code)
	rec := postForm(e, "/token", url.Values{"username": {"admin@x.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var token struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	return http.Header{"Authorization": {"Bearer " + token.AccessToken}}
}

func TestJobs(t *testing.T) {
	e, _ := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, get(e, "/jobs").Code)

	auth := bearerHeader(t, e)
	rec := doRequest(e, http.MethodGet, "/jobs", "", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []app.JobInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "monitor", jobs[0].Name)
	assert.Equal(t, "@every 30s", jobs[0].Schedule)

	rec = doRequest(e, http.MethodPost, "/jobs/nope/run", "", nil, auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", decodeError(t, rec).Code)
}

func TestQueryMetric(t *testing.T) {
	e, application := newTestServer(t)
	auth := bearerHeader(t, e)
	require.Equal(t, http.StatusOK, postJSON(e, "/clientes", anaJSON).Code)
	assert.EqualValues(t, 1, application.Metrics().Counter("clientes_created"))

	rec := doRequest(e, http.MethodGet, "/metrics/clientes_created", "", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view metricView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "clientes_created", view.Metric)
	require.Len(t, view.Points, 1)
	assert.EqualValues(t, 1, view.Points[0].Value)

	rec = doRequest(e, http.MethodGet, "/metrics/unknown", "", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"points":[]`)

	rec = doRequest(e, http.MethodGet, "/metrics/clientes_created?window=-5", "", nil, auth)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, get(e, "/metrics/clientes_created").Code)
}
