package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewOutboxMetrics(reg).Inc(OutboxResultPublished)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `result="published"`) {
		t.Fatalf("metrics body missing outbox counter:\n%s", rec.Body.String())
	}
}

func TestServeDisabledWithoutAddr(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "metrics-test", Output: io.Discard})
	if err := Serve(context.Background(), "  ", prometheus.NewRegistry(), logg); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
