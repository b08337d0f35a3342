package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// DefaultRegistry 进程内独立注册表，避免与全局默认注册表冲突
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		DocumentsIngestedTotal, DocumentsDeletedTotal, ChunksWrittenTotal,
		SearchDuration, SearchTotal,
		StageDuration, DegradedEvaluationsTotal, SectionFailuresTotal,
		BatchItemsTotal, BatchWorkersBusy,
		RateLimitWaitSeconds, LLMCostUSDTotal,
	)
}

// DocumentsIngestedTotal 入库文档数（按 source_type）
var DocumentsIngestedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proddesc_documents_ingested_total",
		Help: "入库文档总数",
	},
	[]string{"source_type"},
)

// DocumentsDeletedTotal 删除文档数
var DocumentsDeletedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "proddesc_documents_deleted_total",
		Help: "删除文档总数",
	},
)

// ChunksWrittenTotal 写入切片数
var ChunksWrittenTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "proddesc_chunks_written_total",
		Help: "写入切片总数",
	},
)

// SearchDuration 检索耗时（秒）
var SearchDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "proddesc_search_duration_seconds",
		Help:    "检索耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// SearchTotal 检索次数（按结果）
var SearchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proddesc_search_total",
		Help: "检索次数",
	},
	[]string{"outcome"}, // hit | empty | cached | error
)

// StageDuration 生成管线各阶段耗时（秒）
var StageDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "proddesc_stage_duration_seconds",
		Help:    "生成管线阶段耗时（秒）",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80},
	},
	[]string{"stage"},
)

// DegradedEvaluationsTotal 评估结果解析失败、走降级路径的次数
var DegradedEvaluationsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "proddesc_degraded_evaluations_total",
		Help: "评估解析降级次数",
	},
)

// SectionFailuresTotal 分段生成失败次数（按 section）
var SectionFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proddesc_section_failures_total",
		Help: "分段生成失败次数",
	},
	[]string{"section"},
)

// BatchItemsTotal 批处理条目数（按状态）
var BatchItemsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proddesc_batch_items_total",
		Help: "批处理条目总数",
	},
	[]string{"status"}, // success | error
)

// BatchWorkersBusy 当前忙碌的批处理 worker 数
var BatchWorkersBusy = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "proddesc_batch_workers_busy",
		Help: "当前忙碌的批处理 worker 数",
	},
)

// RateLimitWaitSeconds 限流等待耗时（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "proddesc_rate_limit_wait_seconds",
		Help:    "限流等待耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind", "provider"},
)

// LLMCostUSDTotal 按定价表估算的 LLM 调用成本（美元）
var LLMCostUSDTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "proddesc_llm_cost_usd_total",
		Help: "LLM 调用估算成本（美元）",
	},
	[]string{"provider", "model"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
