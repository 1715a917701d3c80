package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/folders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/folders/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	body := scrape(t)
	assert.Contains(t, body, `storagedrive_http_requests_total{method="GET",route="/folders/{id}",status="418"}`)
	assert.NotContains(t, body, `route="/folders/abc"`)
}

func TestHandlerExposesCounters(t *testing.T) {
	QuotaRejections.Inc()
	ObserveUpload("s3", time.Now(), errors.New("boom"))

	body := scrape(t)
	assert.Contains(t, body, "storagedrive_quota_rejections_total")
	assert.Contains(t, body, `storagedrive_upload_duration_seconds_count{provider="s3",result="error"}`)
}
