package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath - маршрут, на котором отдаются метрики
const MetricsPath = "/metrics"

// PrometheusMiddleware собирает HTTP-метрики REST API мира:
//
//   - http_request_duration_seconds{method,path,status}
//   - http_requests_inflight
//   - http_request_errors_total{method,path,status} (4xx/5xx)
//   - http_response_bytes_total{path,encoding}, encoding - identity или zstd
//
// Запросы к самому /metrics не учитываются.
type PrometheusMiddleware struct {
	reqDuration   *prometheus.HistogramVec
	reqInflight   prometheus.Gauge
	reqErrors     *prometheus.CounterVec
	responseBytes *prometheus.CounterVec
}

// NewPrometheusMiddleware регистрирует метрики с префиксом service в дефолтном регистре.
// Повторный вызов с тем же service возвращает middleware над уже зарегистрированными метриками.
func NewPrometheusMiddleware(service string) *PrometheusMiddleware {
	return &PrometheusMiddleware{
		reqDuration: registerOrReuse(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 15},
		}, []string{"method", "path", "status"})),
		reqInflight: registerOrReuse(prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Текущее количество обрабатываемых HTTP-запросов.",
		})),
		reqErrors: registerOrReuse(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Запросы, завершившиеся статусом 4xx/5xx.",
		}, []string{"method", "path", "status"})),
		responseBytes: registerOrReuse(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_response_bytes_total",
			Help:      "Объём тел ответов в байтах по кодировке передачи.",
		}, []string{"path", "encoding"})),
	}
}

func registerOrReuse[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Handler возвращает gin.HandlerFunc для router.Use()
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if path == MetricsPath {
			c.Next()
			return
		}

		start := time.Now()
		pm.reqInflight.Inc()
		c.Next()
		pm.reqInflight.Dec()

		code := c.Writer.Status()
		status := strconv.Itoa(code)
		method := c.Request.Method

		pm.reqDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		if code >= 400 {
			pm.reqErrors.WithLabelValues(method, path, status).Inc()
		}

		if size := c.Writer.Size(); size > 0 {
			encoding := c.Writer.Header().Get("Content-Encoding")
			if encoding == "" {
				encoding = "identity"
			}
			pm.responseBytes.WithLabelValues(path, encoding).Add(float64(size))
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics в router
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine) {
	r.GET(MetricsPath, gin.WrapH(promhttp.Handler()))
}
