package adminapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/toughcrm/internal/webserver"
)

var startedAt = time.Now()

type statusView struct {
	Status   string `json:"status"`
	Appid    string `json:"appid"`
	Uptime   int64  `json:"uptime"`
	Clients  int    `json:"clients"`
	Invoices int    `json:"invoices"`
	Products int    `json:"products"`
	Users    int    `json:"users"`
	Storage  string `json:"storage"`
}

func registerStatusRoutes(srv *webserver.Server) {
	srv.ApiGET("/status", getStatus)
}

func getStatus(c echo.Context) error {
	appCtx := GetAppContext(c)
	cfg := appCtx.Config()
	return ok(c, statusView{
		Status:   "ok",
		Appid:    cfg.System.Appid,
		Uptime:   int64(time.Since(startedAt).Seconds()),
		Clients:  appCtx.Clients().Len(),
		Invoices: appCtx.Invoices().Len(),
		Products: appCtx.Products().Len(),
		Users:    appCtx.Users().Len(),
		Storage:  cfg.Database.Type,
	})
}
