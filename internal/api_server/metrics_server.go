package apiserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/docuflow/extraction-tracker/pkg/log"
	"github.com/docuflow/extraction-tracker/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const activePrincipalsWindow = 7 * 24 * time.Hour

// MetricServer exposes the prometheus registry on its own listener.
type MetricServer struct {
	httpServer *http.Server
	listener   net.Listener
}

func NewMetricServer(bindAddress string, listener net.Listener) *MetricServer {
	router := chi.NewRouter()
	router.Use(log.AccessLogger(zap.L(), "metrics_server"))
	router.Handle("/metrics", metrics.NewPrometheusMetricsHandler())

	return &MetricServer{
		listener:   listener,
		httpServer: &http.Server{Addr: bindAddress, Handler: router},
	}
}

func (m *MetricServer) Run(ctx context.Context) error {
	go metrics.ActivePrincipalsPerWeek.ResetEvery(ctx, activePrincipalsWindow)
	return serve(ctx, "metrics_server", m.httpServer, m.listener)
}
