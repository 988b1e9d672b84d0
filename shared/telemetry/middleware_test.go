package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/draftea/booking-system/shared/logging"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", getStatusClass(201))
	assert.Equal(t, "4xx", getStatusClass(404))
	assert.Equal(t, "5xx", getStatusClass(500))
	assert.Equal(t, "unknown", getStatusClass(0))
}

func TestMiddleware_InjectsTelemetry(t *testing.T) {
	tel := NewTelemetry(BookingServiceConfig)

	router := chi.NewRouter()
	router.Use(Middleware(tel))
	router.Get("/bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "booking-service", GetServiceName(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings/999", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	router := chi.NewRouter()
	router.Use(RequestLogger(zap.New(core)))
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, 2, logs.Len())
	entry := logs.FilterMessage("http request").All()[0]
	assert.Equal(t, int64(http.StatusOK), entry.ContextMap()["status"])
}
