// Package metrics содержит метрики Prometheus сервиса доставки.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Engine содержит счётчики назначения и завершения заказов.
type Engine struct {
	assigned       prometheus.Counter
	completed      prometheus.Counter
	evicted        prometheus.Counter
	earnings       prometheus.Counter
	importRejected *prometheus.CounterVec
}

// NewEngine создаёт счётчики и регистрирует их в reg.
func NewEngine(reg prometheus.Registerer) *Engine {
	e := &Engine{
		assigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candy_orders_assigned_total",
			Help: "Total number of orders assigned to couriers",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candy_orders_completed_total",
			Help: "Total number of completed orders",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candy_orders_evicted_total",
			Help: "Total number of orders returned to the pool by courier updates",
		}),
		earnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "candy_courier_earnings_total",
			Help: "Total earnings paid out for completed orders",
		}),
		importRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "candy_import_rejected_total",
			Help: "Total number of rejected import batches",
		}, []string{"kind"}),
	}

	reg.MustRegister(e.assigned, e.completed, e.evicted, e.earnings, e.importRejected)
	return e
}

// Assigned учитывает n назначенных заказов.
func (e *Engine) Assigned(n int) {
	e.assigned.Add(float64(n))
}

// Completed учитывает завершённый заказ и начисленную за него стоимость.
func (e *Engine) Completed(cost int64) {
	e.completed.Inc()
	e.earnings.Add(float64(cost))
}

// Evicted учитывает n заказов, возвращённых в пул после изменения курьера.
func (e *Engine) Evicted(n int) {
	e.evicted.Add(float64(n))
}

// ImportRejected учитывает отклонённый пакет импорта вида kind.
func (e *Engine) ImportRejected(kind string) {
	e.importRejected.WithLabelValues(kind).Inc()
}

// HTTP содержит метрики входящих HTTP-запросов.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP создаёт метрики HTTP-запросов и регистрирует их в reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(m.requests, m.duration)
	return m
}

// Observe учитывает один обработанный запрос.
func (m *HTTP) Observe(method, path string, status int, seconds float64) {
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, path, code).Inc()
	m.duration.WithLabelValues(method, path, code).Observe(seconds)
}
