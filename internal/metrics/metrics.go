// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// HTTPミドルウェア、予約サービス、通知ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordEventPublished(eventType string)
	RecordEventPublishFailure(eventType string)
	RecordEventConsumed(eventType string)
	RecordEventMalformed()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	eventPublished *prometheus.CounterVec
	eventFailed    *prometheus.CounterVec
	eventConsumed  *prometheus.CounterVec
	eventMalformed prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shareit_http_requests_total",
			Help: "HTTPメソッド・ルート・ステータスコード別のレスポンス数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shareit_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		eventPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shareit_booking_events_published_total",
			Help: "種別ごとの予約イベント送信数",
		}, []string{"type"}),
		eventFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shareit_booking_events_publish_failed_total",
			Help: "種別ごとの予約イベント送信失敗数",
		}, []string{"type"}),
		eventConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shareit_booking_events_consumed_total",
			Help: "種別ごとの予約イベント処理数",
		}, []string{"type"}),
		eventMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shareit_booking_events_malformed_total",
			Help: "解釈できなかった予約イベントの数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.httpLatency,
		c.eventPublished,
		c.eventFailed,
		c.eventConsumed,
		c.eventMalformed,
	)

	return c
}

// RecordHTTPRequest はHTTPレスポンスのステータスと処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルの濃度を抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpStatus.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordEventPublished は予約イベントの送信成功を記録する。
func (c *Collector) RecordEventPublished(eventType string) {
	c.eventPublished.WithLabelValues(eventType).Inc()
}

// RecordEventPublishFailure は予約イベントの送信失敗を記録する。
func (c *Collector) RecordEventPublishFailure(eventType string) {
	c.eventFailed.WithLabelValues(eventType).Inc()
}

// RecordEventConsumed はワーカーが処理した予約イベントを記録する。
func (c *Collector) RecordEventConsumed(eventType string) {
	c.eventConsumed.WithLabelValues(eventType).Inc()
}

// RecordEventMalformed は解釈できなかったメッセージを記録する。
func (c *Collector) RecordEventMalformed() {
	c.eventMalformed.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// ワーカープロセスのメトリクス公開に使用する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// NopCollector はメトリクスを記録しないMetricsCollector。テストや未設定時に使用する。
type NopCollector struct{}

func (NopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NopCollector) RecordEventPublished(string)                          {}
func (NopCollector) RecordEventPublishFailure(string)                     {}
func (NopCollector) RecordEventConsumed(string)                           {}
func (NopCollector) RecordEventMalformed()                                {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
