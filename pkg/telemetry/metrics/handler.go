package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's private registry in the Prometheus
// exposition format. Scrape errors are counted in
// promhttp_metric_handler_errors_total and the remaining metrics are still
// served. A disabled collector serves 404.
func (c *Collector) Handler() http.Handler {
	if !c.config.Enabled {
		return http.NotFoundHandler()
	}
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			Registry:          c.registry,
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	))
}

// Path is where Handler is mounted. Default: config.DefaultPrometheusPath.
func (c *Collector) Path() string {
	return c.config.Path
}
