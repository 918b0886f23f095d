package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"presence.service/internal/api/handler"
	"presence.service/internal/core"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
// gatherer may be nil, in which case /metrics is not exposed.
func NewRouter(service *core.PresenceService, gatherer prometheus.Gatherer) *mux.Router {
	presenceHandler := handler.PresenceHandler{
		Service: service,
	}

	r := mux.NewRouter()

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	api.HandleFunc("/employees/{id}/timesheet", presenceHandler.RequestTimesheet).Methods(http.MethodPost)

	category := "/{category:" + handler.CategoryPattern + "}"
	api.HandleFunc(category, presenceHandler.List).Methods(http.MethodGet)
	api.HandleFunc(category, presenceHandler.Create).Methods(http.MethodPost)
	api.HandleFunc(category, presenceHandler.Update).Methods(http.MethodPut)
	api.HandleFunc(category, presenceHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc(category+"/{id}", presenceHandler.Get).Methods(http.MethodGet)
	api.HandleFunc(category+"/{id}/summary", presenceHandler.Summary).Methods(http.MethodGet)

	return r
}
