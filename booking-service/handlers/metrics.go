package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsHandler exposes the Prometheus registry fed by the OpenTelemetry exporter
func NewMetricsHandler() http.Handler {
	return promhttp.Handler()
}
