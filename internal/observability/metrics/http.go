package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks outbound requests to the pack server.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	mu     sync.Mutex
	starts map[*http.Request]time.Time
}

// NewHTTPMetrics creates and registers the HTTP client metrics.
func NewHTTPMetrics(registry prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "palm_http_client_requests_total",
			Help: "Outbound HTTP requests by path and status code",
		}, []string{"path", "code"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "palm_http_client_errors_total",
			Help: "Outbound HTTP requests that failed before a response",
		}, []string{"path"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "palm_http_client_response_seconds",
			Help:    "Time until response headers were received",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		starts: make(map[*http.Request]time.Time),
	}
	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestErrors, m.requestDuration} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
		}
	}
	return m, nil
}

// BeforeRequest is installed as the client's before-request hook.
func (m *HTTPMetrics) BeforeRequest(req *http.Request) {
	m.mu.Lock()
	m.starts[req] = time.Now()
	m.mu.Unlock()
}

// AfterResponse is installed as the client's after-response hook.
func (m *HTTPMetrics) AfterResponse(req *http.Request, resp *http.Response, err error) {
	m.mu.Lock()
	start, ok := m.starts[req]
	delete(m.starts, req)
	m.mu.Unlock()

	path := req.URL.Path
	if ok {
		m.requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
	if err != nil || resp == nil {
		m.requestErrors.WithLabelValues(path).Inc()
		return
	}
	m.requestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
}
