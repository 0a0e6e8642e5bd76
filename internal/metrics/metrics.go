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
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordPostCreated()
	RecordLike()
	RecordComment()
	RecordHTTPRequest(method, path string, statusCode int)
	RecordHTTPLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	postsCreated prometheus.Counter
	likes        prometheus.Counter
	comments     prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedtalk_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		likes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedtalk_likes_total",
			Help: "付けられたいいねの合計数",
		}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedtalk_comments_total",
			Help: "追加されたコメントの合計数",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedtalk_http_requests_total",
			Help: "メソッド・パス・ステータスコード別のリクエスト数",
		}, []string{"method", "path", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedtalk_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.postsCreated,
		c.likes,
		c.comments,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordLike はいいねを記録する。
func (c *Collector) RecordLike() {
	c.likes.Inc()
}

// RecordComment はコメント追加を記録する。
func (c *Collector) RecordComment() {
	c.comments.Inc()
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はHTTPリクエストのレイテンシを記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// 公開ルーターとは別のリスナーで提供する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
