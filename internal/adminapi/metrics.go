package adminapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/toughcrm/internal/webserver"
)

const defaultMetricWindow = time.Hour

type metricPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

type metricView struct {
	Metric string        `json:"metric"`
	Since  int64         `json:"since"`
	Points []metricPoint `json:"points"`
}

func registerMetricRoutes(srv *webserver.Server) {
	srv.ApiGET("/metrics/:name", queryMetric, bearerAuth())
}

// queryMetric returns the points recorded for a metric in the last `window`
// seconds (one hour by default)
func queryMetric(c echo.Context) error {
	window := defaultMetricWindow
	if s := c.QueryParam("window"); s != "" {
		secs, err := strconv.Atoi(s)
		if err != nil || secs <= 0 {
			return fail(c, http.StatusUnprocessableEntity, "INVALID_WINDOW", "window must be a positive number of seconds", nil)
		}
		window = time.Duration(secs) * time.Second
	}

	name := c.Param("name")
	since := time.Now().Add(-window)
	points, err := GetAppContext(c).Metrics().Query(name, since)
	if err != nil {
		return handleDomainError(c, err, "METRIC")
	}

	view := metricView{Metric: name, Since: since.Unix(), Points: make([]metricPoint, 0, len(points))}
	for _, p := range points {
		view.Points = append(view.Points, metricPoint{Timestamp: p.Timestamp, Value: p.Value})
	}
	return ok(c, view)
}
