// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics はHTTPレイヤーが使用するメトリクス収集のインターフェース。
type HTTPMetrics interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// NotificationMetrics は通知ディスパッチャが使用するメトリクス収集のインターフェース。
type NotificationMetrics interface {
	RecordNotificationDelivered(event string)
	RecordNotificationDropped(event string)
}

// PointsMetrics はポイントサービスが使用するメトリクス収集のインターフェース。
type PointsMetrics interface {
	RecordPurchase(pointsEarned int)
	RecordConversion(pointsConverted int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	notifyDelivered *prometheus.CounterVec
	notifyDropped   *prometheus.CounterVec
	purchases       prometheus.Counter
	pointsEarned    prometheus.Counter
	pointsConverted prometheus.Counter
	liveConnections prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuspoint_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "campuspoint_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		notifyDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuspoint_notifications_delivered_total",
			Help: "ライブ接続へ配信された通知のイベント別合計数",
		}, []string{"event"}),
		notifyDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuspoint_notifications_dropped_total",
			Help: "接続不在または書き込み失敗で破棄された通知のイベント別合計数",
		}, []string{"event"}),
		purchases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campuspoint_purchases_total",
			Help: "記録された購入の合計数",
		}),
		pointsEarned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campuspoint_points_earned_total",
			Help: "購入により付与されたポイントの合計",
		}),
		pointsConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campuspoint_points_converted_total",
			Help: "バウチャーに交換されたポイントの合計",
		}),
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campuspoint_live_connections",
			Help: "現在のライブ接続数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.notifyDelivered,
		c.notifyDropped,
		c.purchases,
		c.pointsEarned,
		c.pointsConverted,
		c.liveConnections,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordNotificationDelivered は通知の配信成功を記録する。
func (c *Collector) RecordNotificationDelivered(event string) {
	c.notifyDelivered.WithLabelValues(event).Inc()
}

// RecordNotificationDropped は通知の破棄を記録する。
func (c *Collector) RecordNotificationDropped(event string) {
	c.notifyDropped.WithLabelValues(event).Inc()
}

// RecordPurchase は購入1件と付与ポイントを記録する。
func (c *Collector) RecordPurchase(pointsEarned int) {
	c.purchases.Inc()
	c.pointsEarned.Add(float64(pointsEarned))
}

// RecordConversion は交換されたポイント数を記録する。
func (c *Collector) RecordConversion(pointsConverted int) {
	c.pointsConverted.Add(float64(pointsConverted))
}

// SetLiveConnections は現在のライブ接続数を記録する。
func (c *Collector) SetLiveConnections(n int) {
	c.liveConnections.Set(float64(n))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
