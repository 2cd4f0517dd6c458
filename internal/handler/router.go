package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/kesha1225/CandyDeliveryAppApi/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса доставки.
// gatherer отдаётся на /metrics; nil означает prometheus.DefaultGatherer.
func (h *Handler) SetupRouter(gatherer prometheus.Gatherer) *chi.Mux {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	if h.http != nil {
		r.Use(custommiddleware.Metrics(h.http))
	}

	r.Route("/couriers", func(r chi.Router) {
		r.Post("/", h.CreateCouriers)
		r.Get("/{courier_id}", h.GetCourier)
		r.Patch("/{courier_id}", h.PatchCourier)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrders)
		r.Post("/assign", h.AssignOrders)
		r.Post("/complete", h.CompleteOrder)
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
