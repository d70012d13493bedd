package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRequests 每個階段的處理結果
	PipelineRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menugen_pipeline_requests_total",
		Help: "Pipeline runs by stage and outcome.",
	}, []string{"stage", "outcome"})

	// UpstreamDuration 外部服務耗時
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menugen_upstream_request_duration_seconds",
		Help:    "Latency of calls to external services.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"service", "outcome"})

	// ImageResolution 圖片解析最後採用的策略
	ImageResolution = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menugen_image_resolution_total",
		Help: "Image resolution outcomes by winning strategy.",
	}, []string{"strategy"})

	// NutritionExtraction 營養資訊解析策略
	NutritionExtraction = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menugen_nutrition_extraction_total",
		Help: "Nutrition extraction outcomes by winning strategy.",
	}, []string{"strategy"})

	// RateLimited 被限流的請求
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "menugen_rate_limited_total",
		Help: "Requests rejected by the per-caller throttle.",
	})
)

// ObserveUpstream 記錄外部服務呼叫耗時
func ObserveUpstream(service string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamDuration.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
}
