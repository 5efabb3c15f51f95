package middleware

import (
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader - заголовок ответа с trace-ID запроса
const TraceHeader = "X-Trace-ID"

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи
// в логгер компонента api. Опрос /metrics логируется только на уровне TRACE.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger() *RequestLogger {
	return &RequestLogger{logger: logging.GetAPILogger()}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := requestTraceID(c)
		c.Set("trace_id", traceID)
		c.Header(TraceHeader, traceID)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if path == MetricsPath {
			rl.logger.Trace("[HTTP] scrape %s", c.ClientIP())
			c.Next()
			return
		}

		start := time.Now()
		rl.logger.Debug("[HTTP] ▶ %s %s ip=%s trace=%s", c.Request.Method, path, c.ClientIP(), traceID)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		size := c.Writer.Size()
		if status >= 500 {
			rl.logger.Error("[HTTP] ◀ %s %s %d %s %dB trace=%s", c.Request.Method, path, status, latency, size, traceID)
			return
		}
		rl.logger.Info("[HTTP] ◀ %s %s %d %s %dB trace=%s", c.Request.Method, path, status, latency, size, traceID)
	}
}

// requestTraceID берёт trace-ID из спана OpenTelemetry, а без него выдаёт UUID
func requestTraceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}
