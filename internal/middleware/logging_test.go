package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xinodeprinz/edstock-server/internal/metrics"
)

func TestLoggingMiddleware_RecordsRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(LoggingMiddleware(zap.New(core), m))
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		RespondWithError(w, http.StatusNotFound, "product not found")
	})

	for _, id := range []string{"p1", "p2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
	}

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var counted float64
	for _, family := range families {
		if family.GetName() != "edstock_http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["route"] == "/products/{id}" && labels["status"] == "404" {
				counted += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, counted)

	completed := logs.FilterMessage("Request completed").All()
	if assert.Len(t, completed, 2) {
		assert.Equal(t, "/products/{id}", completed[0].ContextMap()["route"])
		assert.EqualValues(t, 404, completed[0].ContextMap()["status"])
	}
}

func TestLoggingMiddleware_NilMetrics(t *testing.T) {
	handler := LoggingMiddleware(zap.NewNop(), nil)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
