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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordContactSubmission(result string)
	RecordTelegramAuth(result string)
	RecordPageView()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	contactSubmits *prometheus.CounterVec
	telegramAuths  *prometheus.CounterVec
	pageViews      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "folio_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		contactSubmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_contact_submissions_total",
			Help: "問い合わせ送信の結果別の合計数",
		}, []string{"result"}),
		telegramAuths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_telegram_auth_total",
			Help: "Telegramログイン検証の結果別の合計数",
		}, []string{"result"}),
		pageViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_page_views_total",
			Help: "記録されたページビューの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.contactSubmits,
		c.telegramAuths,
		c.pageViews,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordContactSubmission は問い合わせ送信の結果を記録する。
// resultは accepted / rejected / rate_limited / honeypot のいずれか。
func (c *Collector) RecordContactSubmission(result string) {
	c.contactSubmits.WithLabelValues(result).Inc()
}

// RecordTelegramAuth はTelegramログイン検証の結果を記録する。
// resultは success / invalid / stale / missing / not_configured のいずれか。
func (c *Collector) RecordTelegramAuth(result string) {
	c.telegramAuths.WithLabelValues(result).Inc()
}

// RecordPageView はページビューの記録を数える。
func (c *Collector) RecordPageView() {
	c.pageViews.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// アプリ本体とは別ポートで公開される。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
