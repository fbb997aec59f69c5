package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/campuspoint/internal/metrics"
)

// NewMetricsMiddleware はレスポンスのステータスコードとレイテンシを
// メトリクスとして記録するミドルウェアを返す。
func NewMetricsMiddleware(collector metrics.HTTPMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestDuration(time.Since(start))
		})
	}
}
