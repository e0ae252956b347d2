package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(gatewayRequestsTotal.WithLabelValues("GET", "/api/products/{id}", "418"))

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/products/"+id, nil))
	}

	after := testutil.ToFloat64(gatewayRequestsTotal.WithLabelValues("GET", "/api/products/{id}", "418"))
	assert.Equal(t, 3.0, after-before)
}

func TestStatusRecorder_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := newStatusRecorder(rec)

	sr.Flush()

	assert.True(t, rec.Flushed)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(ordersTotal.WithLabelValues("placed"))
	OrderResult("placed")
	assert.Equal(t, 1.0, testutil.ToFloat64(ordersTotal.WithLabelValues("placed"))-before)

	beforeUp := testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("GET", "/products", "200"))
	ObserveUpstream("GET", "/products", 200, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("GET", "/products", "200"))-beforeUp)

	SetActiveVisitors(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(activeVisitors))
}
