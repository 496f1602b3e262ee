package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAcquisitionMetrics(t *testing.T) {
	ResetRegistry()

	m := NewAcquisitionMetrics("1.2.3")
	require.NotNil(t, m)

	t.Run("counters start at zero and increment", func(t *testing.T) {
		m.AcquisitionsTotal.WithLabelValues("homologation", "acquired").Inc()
		m.AcquisitionsTotal.WithLabelValues("homologation", "acquired").Inc()
		m.CacheHits.WithLabelValues("production").Inc()

		assert.Equal(t, float64(2),
			testutil.ToFloat64(m.AcquisitionsTotal.WithLabelValues("homologation", "acquired")))
		assert.Equal(t, float64(1),
			testutil.ToFloat64(m.CacheHits.WithLabelValues("production")))
	})

	t.Run("service info carries version", func(t *testing.T) {
		count, err := testutil.GatherAndCount(GetRegistry(), "arca_wsaa_info")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestMiddleware(t *testing.T) {
	ResetRegistry()
	m := NewAcquisitionMetrics("test")

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/health", "418")))

	t.Run("tenant id is templated out of the path label", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/access/20304050607/homologation", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, float64(1),
			testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/v1/access/{tenant}/{env}", "418")))

		families, err := GetRegistry().Gather()
		require.NoError(t, err)
		for _, family := range families {
			for _, metric := range family.GetMetric() {
				for _, label := range metric.GetLabel() {
					assert.NotContains(t, label.GetValue(), "20304050607")
				}
			}
		}
	})
}

func TestSanitizePath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/v1/access/20304050607/homologation", "/api/v1/access/{tenant}/{env}"},
		{"/api/v1/access/20304050607/production", "/api/v1/access/{tenant}/{env}"},
		{"/api/v1/access/20304050607", "/api/v1/access/{tenant}"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizePath(tc.path), tc.path)
	}
}

func TestHashID(t *testing.T) {
	t.Run("stable and short", func(t *testing.T) {
		a := HashID("tenant-42")
		b := HashID("tenant-42")

		assert.Equal(t, a, b)
		assert.Len(t, a, 16)
		assert.NotContains(t, a, "tenant")
	})

	t.Run("empty id maps to unknown", func(t *testing.T) {
		assert.Equal(t, "unknown", HashID(""))
	})
}
