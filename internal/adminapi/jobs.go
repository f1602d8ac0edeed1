package adminapi

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/talkincode/toughcrm/internal/webserver"
)

func registerJobRoutes(srv *webserver.Server) {
	srv.ApiGET("/jobs", listJobs, bearerAuth())
	srv.ApiPOST("/jobs/:name/run", runJob, bearerAuth())
}

func listJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// runJob triggers a job now, outside its schedule
func runJob(c echo.Context) error {
	name := c.Param("name")
	if err := GetAppContext(c).RunJob(name); err != nil {
		return handleDomainError(c, err, "JOB")
	}
	zap.L().Info("job triggered", zap.String("job", name))
	return ok(c, map[string]string{"job": name, "status": "done"})
}
