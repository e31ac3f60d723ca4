// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，覆盖 LLM、工具、代理、知识库与工作记忆五个维度。
// nil *Collector 是合法值：所有记录方法按空操作处理，指标关闭时调用方
// 无需逐处判断开关。
type Collector struct {
	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	// 工具指标
	toolExecutionsTotal   *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	// Agent 指标
	agentExecutionsTotal   *prometheus.CounterVec
	agentExecutionDuration *prometheus.HistogramVec

	// 知识库指标
	kbQueriesTotal  *prometheus.CounterVec
	kbQueryDuration *prometheus.HistogramVec

	// 工作记忆指标
	workingMemoryOpsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到默认 Registry。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// LLM 指标
	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	// 工具指标
	c.toolExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	c.toolExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
		},
		[]string{"tool"},
	)

	// Agent 指标
	c.agentExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_executions_total",
			Help:      "Total number of agent executions",
		},
		[]string{"agent", "status"},
	)

	c.agentExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_execution_duration_seconds",
			Help:      "Agent execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"agent"},
	)

	// 知识库指标
	c.kbQueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kb_queries_total",
			Help:      "Total number of knowledge base queries",
		},
		[]string{"kb", "status"},
	)

	c.kbQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kb_query_duration_seconds",
			Help:      "Knowledge base query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kb"},
	)

	// 工作记忆指标
	c.workingMemoryOpsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "working_memory_ops_total",
			Help:      "Total number of working memory operations",
		},
		[]string{"operation", "status"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🤖 LLM 指标记录
// =============================================================================

// RecordLLMRequest 记录 LLM 请求
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// =============================================================================
// 🔧 工具指标记录
// =============================================================================

// RecordToolExecution 记录工具执行
func (c *Collector) RecordToolExecution(tool, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.toolExecutionsTotal.WithLabelValues(tool, status).Inc()
	c.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// =============================================================================
// 🎭 Agent 指标记录
// =============================================================================

// RecordAgentExecution 记录 Agent 执行
func (c *Collector) RecordAgentExecution(agent, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.agentExecutionsTotal.WithLabelValues(agent, status).Inc()
	c.agentExecutionDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// =============================================================================
// 📚 知识库指标记录
// =============================================================================

// RecordKBQuery 记录知识库查询
func (c *Collector) RecordKBQuery(kb, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.kbQueriesTotal.WithLabelValues(kb, status).Inc()
	c.kbQueryDuration.WithLabelValues(kb).Observe(duration.Seconds())
}

// =============================================================================
// 🧠 工作记忆指标记录
// =============================================================================

// RecordWorkingMemoryOp 记录工作记忆操作（set/get/keys/drop_table）
func (c *Collector) RecordWorkingMemoryOp(operation, status string) {
	if c == nil {
		return
	}
	c.workingMemoryOpsTotal.WithLabelValues(operation, status).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// StatusLabel 将 error 归类为 status 标签值
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
