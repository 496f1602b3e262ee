// Package metrics provides Prometheus instrumentation for the ARCA access
// service. Tenant identifiers are hashed before they are used as labels.
package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
	registryMu   sync.Mutex
)

// GetRegistry returns the service metrics registry.
func GetRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	return registry
}

// ResetRegistry resets the registry. This should only be used in tests.
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registryOnce = sync.Once{}
}

// AcquisitionMetrics instruments the credential acquisition flow.
type AcquisitionMetrics struct {
	// AcquisitionsTotal counts acquisition attempts by environment and outcome.
	AcquisitionsTotal *prometheus.CounterVec
	// AcquisitionDuration observes the duration of full acquisition attempts.
	AcquisitionDuration *prometheus.HistogramVec
	// CacheHits counts cached-ticket reuses by environment.
	CacheHits *prometheus.CounterVec

	// HTTP metrics for the outer API layer.
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge

	ServiceInfo *prometheus.GaugeVec
}

// NewAcquisitionMetrics creates and registers the acquisition metrics.
func NewAcquisitionMetrics(version string) *AcquisitionMetrics {
	reg := GetRegistry()

	m := &AcquisitionMetrics{
		AcquisitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arca",
				Subsystem: "wsaa",
				Name:      "acquisitions_total",
				Help:      "Total ticket acquisition attempts by outcome",
			},
			[]string{"environment", "outcome"},
		),

		AcquisitionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "arca",
				Subsystem: "wsaa",
				Name:      "acquisition_duration_seconds",
				Help:      "Duration of full acquisition attempts in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"environment"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arca",
				Subsystem: "wsaa",
				Name:      "ticket_cache_hits_total",
				Help:      "Cached ticket reuses",
			},
			[]string{"environment"},
		),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "arca",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "arca",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ActiveRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "arca",
				Subsystem: "http",
				Name:      "active_requests",
				Help:      "Number of active HTTP requests",
			},
		),

		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "arca",
				Subsystem: "wsaa",
				Name:      "info",
				Help:      "Service information",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		m.AcquisitionsTotal,
		m.AcquisitionDuration,
		m.CacheHits,
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.ServiceInfo,
	)

	m.ServiceInfo.WithLabelValues(version, runtime.Version()).Set(1)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// HashID creates a short hash of an identifier for safe metric labels, so
// tenant identifiers never appear in metrics verbatim.
func HashID(id string) string {
	if id == "" {
		return "unknown"
	}
	h := sha256.Sum256([]byte(id))
	return hex.EncodeToString(h[:8])
}

// SanitizePath converts a path with identifiers to a template, keeping the
// path label set bounded.
// Example: /api/v1/access/20304050607/homologation -> /api/v1/access/{tenant}/{env}
func SanitizePath(path string) string {
	// Path parameters that follow a known resource segment.
	patterns := map[string][]string{
		"access": {"{tenant}", "{env}"},
	}

	result := path
	segments := splitPath(path)

	for i := 0; i < len(segments); i++ {
		replacements, ok := patterns[segments[i]]
		if !ok {
			continue
		}
		for j, replacement := range replacements {
			if i+1+j < len(segments) && segments[i+1+j] != "" {
				result = replacePath(result, segments[i+1+j], replacement)
			}
		}
	}

	return result
}

func splitPath(path string) []string {
	var segments []string
	current := ""
	for _, c := range path {
		if c == '/' {
			if current != "" {
				segments = append(segments, current)
				current = ""
			}
		} else {
			current += string(c)
		}
	}
	if current != "" {
		segments = append(segments, current)
	}
	return segments
}

func replacePath(path, old, new string) string {
	result := ""
	i := 0
	for i < len(path) {
		if i+len(old) <= len(path) && path[i:i+len(old)] == old {
			result += new
			i += len(old)
		} else {
			result += string(path[i])
			i++
		}
	}
	return result
}
