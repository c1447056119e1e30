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
// 認証サービス・トークン検証・HTTPミドルウェア・クリーンアップから利用する。
type MetricsCollector interface {
	RecordRegistration(outcome string)
	RecordLogin(outcome string)
	RecordRefresh(outcome string)
	RecordTokenRejected(reason string)
	RecordHTTPStatus(statusCode int)
	RecordTokensPurged(count int64)
	RecordCleanupDuration(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations   *prometheus.CounterVec
	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	tokenRejections *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	tokensPurged    prometheus.Counter
	cleanupDuration prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authapi_registrations_total",
			Help: "結果別のユーザー登録数",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authapi_logins_total",
			Help: "結果別のログイン数",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authapi_refreshes_total",
			Help: "結果別のアクセストークン再発行数",
		}, []string{"outcome"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authapi_token_rejections_total",
			Help: "原因別のアクセストークン検証失敗数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authapi_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authapi_refresh_tokens_purged_total",
			Help: "一括削除された期限切れリフレッシュトークンの合計数",
		}),
		cleanupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "authapi_cleanup_duration_seconds",
			Help:    "期限切れリフレッシュトークン削除の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.refreshes,
		c.tokenRejections,
		c.httpStatus,
		c.tokensPurged,
		c.cleanupDuration,
	)

	return c
}

// RecordRegistration はユーザー登録の結果を記録する。
func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

// RecordLogin はログインの結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordRefresh はアクセストークン再発行の結果を記録する。
func (c *Collector) RecordRefresh(outcome string) {
	c.refreshes.WithLabelValues(outcome).Inc()
}

// RecordTokenRejected はアクセストークン検証失敗を原因別に記録する。
func (c *Collector) RecordTokenRejected(reason string) {
	c.tokenRejections.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTokensPurged は一括削除したリフレッシュトークン数を記録する。
func (c *Collector) RecordTokensPurged(count int64) {
	if count > 0 {
		c.tokensPurged.Add(float64(count))
	}
}

// RecordCleanupDuration はクリーンアップの所要時間を記録する。
func (c *Collector) RecordCleanupDuration(duration time.Duration) {
	c.cleanupDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
