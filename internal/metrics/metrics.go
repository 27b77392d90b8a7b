// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// apiclient.Recorder と session.Recorder を満たす。
type Collector struct {
	apiCalls           *prometheus.CounterVec
	apiLatency         *prometheus.HistogramVec
	sessionTransitions *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	statesPurged       prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_api_calls_total",
			Help: "ディーラーAPI呼び出しの合計数",
		}, []string{"resource", "operation", "status_code"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "showroom_api_latency_seconds",
			Help:    "ディーラーAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource", "operation"}),
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "showroom_session_transitions_total",
			Help: "セッションの認証状態遷移の合計数",
		}, []string{"event"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "showroom_active_sessions",
			Help: "認証済みのセッション数",
		}),
		statesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "showroom_client_state_purged_total",
			Help: "保持期間切れで削除されたセッション状態の合計数",
		}),
	}

	reg.MustRegister(
		c.apiCalls,
		c.apiLatency,
		c.sessionTransitions,
		c.activeSessions,
		c.statesPurged,
	)

	return c
}

// RecordAPICall はAPI呼び出しの結果とレイテンシを記録する。
// 通信エラーはstatus_code="0"として記録される。
func (c *Collector) RecordAPICall(resource, operation string, statusCode int, duration time.Duration) {
	c.apiCalls.WithLabelValues(resource, operation, strconv.Itoa(statusCode)).Inc()
	c.apiLatency.WithLabelValues(resource, operation).Observe(duration.Seconds())
}

// RecordSessionTransition はセッションの状態遷移を記録する。
func (c *Collector) RecordSessionTransition(event string) {
	c.sessionTransitions.WithLabelValues(event).Inc()
}

// SetActiveSessions は認証済みセッション数を設定する。
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// RecordStatesPurged はクリーンアップで削除された状態の件数を記録する。
func (c *Collector) RecordStatesPurged(count int64) {
	c.statesPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
