package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEngineCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewEngine(reg)

	e.Assigned(3)
	e.Completed(4500)
	e.Completed(1000)
	e.Evicted(2)
	e.ImportRejected("orders")

	assert.Equal(t, 3.0, testutil.ToFloat64(e.assigned))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.completed))
	assert.Equal(t, 5500.0, testutil.ToFloat64(e.earnings))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.evicted))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.importRejected.WithLabelValues("orders")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.importRejected.WithLabelValues("couriers")))
}

func TestNewEngine_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewEngine(reg)

	assert.Panics(t, func() { NewEngine(reg) })
}

func TestHTTPObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP(reg)

	m.Observe("POST", "/orders/assign", 200, 0.01)
	m.Observe("POST", "/orders/assign", 200, 0.02)
	m.Observe("GET", "/couriers/{courier_id}", 400, 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/orders/assign", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/couriers/{courier_id}", "400")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}
