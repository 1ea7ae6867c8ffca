package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry, Config{ServiceName: "partnerdesk", Environment: "test"})
	if err != nil {
		t.Fatalf("new http metrics: %v", err)
	}

	router := gin.New()
	router.Use(GinMiddleware(m))
	router.GET("/partners/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2", "3"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/partners/"+id, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/partners/:id", "GET", "200"))
	if got != 3 {
		t.Fatalf("expected 3 requests on route template, got %v", got)
	}
}

func TestNewHTTPMetricsRejectsDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := NewHTTPMetrics(registry, Config{}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewHTTPMetrics(registry, Config{}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}
