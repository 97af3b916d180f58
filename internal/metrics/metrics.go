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
// 予測サービスと削除コーディネータから利用する。
type MetricsCollector interface {
	RecordPrediction(outcome string)
	RecordPredictorFailure()
	RecordPredictorHTTPStatus(statusCode int)
	RecordPredictorLatency(duration time.Duration)
	RecordSessionDeleted(customerRemoved bool)
	RecordSessionsPurged(userID string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	predictions      *prometheus.CounterVec
	predictorFail    prometheus.Counter
	predictorStatus  *prometheus.CounterVec
	predictorLatency prometheus.Histogram
	sessionsDeleted  prometheus.Counter
	customersRemoved prometheus.Counter
	purges           prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "churnboard_prediction_total",
			Help: "保存された予測セッションの結果別合計数",
		}, []string{"outcome"}),
		predictorFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "churnboard_predictor_fail_total",
			Help: "予測器呼び出し失敗の合計数",
		}),
		predictorStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "churnboard_predictor_http_status_total",
			Help: "予測器のHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		predictorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "churnboard_predictor_latency_seconds",
			Help:    "予測器呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "churnboard_sessions_deleted_total",
			Help: "削除された予測セッションの合計数",
		}),
		customersRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "churnboard_customer_records_removed_total",
			Help: "孤立回収で削除された顧客レコードの合計数",
		}),
		purges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "churnboard_sessions_purged_total",
			Help: "履歴全消去の実行合計数",
		}),
	}

	reg.MustRegister(
		c.predictions,
		c.predictorFail,
		c.predictorStatus,
		c.predictorLatency,
		c.sessionsDeleted,
		c.customersRemoved,
		c.purges,
	)

	return c
}

// RecordPrediction は保存された予測セッションを結果ラベル付きで記録する。
func (c *Collector) RecordPrediction(outcome string) {
	c.predictions.WithLabelValues(outcome).Inc()
}

// RecordPredictorFailure は予測器呼び出し失敗を記録する。
func (c *Collector) RecordPredictorFailure() {
	c.predictorFail.Inc()
}

// RecordPredictorHTTPStatus は予測器のHTTPステータスコードを記録する。
func (c *Collector) RecordPredictorHTTPStatus(statusCode int) {
	c.predictorStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordPredictorLatency は予測器呼び出しのレイテンシを記録する。
func (c *Collector) RecordPredictorLatency(duration time.Duration) {
	c.predictorLatency.Observe(duration.Seconds())
}

// RecordSessionDeleted は予測セッションの削除を記録する。
// 孤立回収で顧客レコードも削除された場合はそのカウンタも増やす。
func (c *Collector) RecordSessionDeleted(customerRemoved bool) {
	c.sessionsDeleted.Inc()
	if customerRemoved {
		c.customersRemoved.Inc()
	}
}

// RecordSessionsPurged は履歴全消去の実行を記録する。
func (c *Collector) RecordSessionsPurged(userID string) {
	c.purges.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
