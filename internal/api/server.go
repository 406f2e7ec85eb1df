package api

import (
	"net/http"
	"strings"

	"covidstats/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type server struct {
	svc      *service.Service
	logger   *zap.SugaredLogger
	registry *prometheus.Registry
	metrics  *metrics
}

func NewServer(svc *service.Service, logger *zap.SugaredLogger) *server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := newMetrics()
	registry.MustRegister(m)
	return &server{svc: svc, logger: logger, registry: registry, metrics: m}
}

func (s *server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// states
	s.handle(mux, http.MethodGet, "/states", s.handleListStates)
	s.handle(mux, http.MethodGet, "/states/{stateId}", s.handleGetState)
	s.handle(mux, http.MethodGet, "/states/{stateId}/stats", s.handleStateStats)

	// districts
	s.handle(mux, http.MethodPost, "/districts", s.handleCreateDistrict)
	s.handle(mux, http.MethodGet, "/districts/{districtId}", s.handleGetDistrict)
	s.handle(mux, http.MethodPut, "/districts/{districtId}", s.handleUpdateDistrict)
	s.handle(mux, http.MethodDelete, "/districts/{districtId}", s.handleDeleteDistrict)
	s.handle(mux, http.MethodGet, "/districts/{districtId}/details", s.handleDistrictDetails)

	return withRequestID(withAccessLog(s.logger, withRecovery(s.logger, mux)))
}

// handle registers path both with and without a trailing slash and
// instruments the handler under a single route label.
func (s *server) handle(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	route := strings.TrimSuffix(path, "/") + "/"
	instrumented := s.metrics.instrument(method, route, h)
	mux.Handle(method+" "+strings.TrimSuffix(path, "/"), instrumented)
	mux.Handle(method+" "+route+"{$}", instrumented)
}
