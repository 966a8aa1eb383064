package log

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// AccessLogger logs the requests of auxiliary servers (metrics, probes). Probe and scrape
// requests are only logged at debug level.
func AccessLogger(l *zap.Logger, name string) func(next http.Handler) http.Handler {
	if l == nil {
		panic("log.AccessLogger received a nil *zap.Logger")
	}
	logger := l.Named(name)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			fields := []zap.Field{
				zap.String("http_method", r.Method),
				zap.String("http_path", r.URL.Path),
				zap.Int("http_status_code", status),
				zap.Int("response_bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}

			switch {
			case status >= 500:
				logger.Error("request completed", fields...)
			case status >= 400:
				logger.Warn("request completed", fields...)
			case isProbe(r):
				logger.Debug("request completed", fields...)
			default:
				logger.Info("request completed", fields...)
			}
		})
	}
}

func isProbe(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/metrics")
}
