package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maitri"

var (
	// VoiceSessionsActive 当前在线语音会话数
	VoiceSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "voice_sessions_active",
		Help:      "Number of open voice sessions.",
	})

	// Utterances 话语门控结果
	Utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "voice_utterances_total",
		Help:      "Final utterances seen by the gate, by decision.",
	}, []string{"decision"})

	// PipelineErrors 生成/合成/连接失败次数
	PipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_errors_total",
		Help:      "Pipeline failures by error kind.",
	}, []string{"kind"})

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Response engine latency.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	TTSCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tts_cache_hits_total",
		Help:      "Synthesis requests answered from the audio cache.",
	})

	// ChatRequests 文本对话请求，按 HTTP 状态码统计
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_requests_total",
		Help:      "Text chat requests by status code.",
	}, []string{"status"})
)

// Handler Prometheus 抓取接口
func Handler() http.Handler {
	return promhttp.Handler()
}
