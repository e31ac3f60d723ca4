package metrics

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("fincrew_test_%d", seq)
}

func newTestCollector() *Collector {
	return NewCollector("fincrew", prometheus.NewRegistry(), zap.NewNop())
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := newTestCollector()

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.llmRequestDuration)
	assert.NotNil(t, collector.llmTokensUsed)
	assert.NotNil(t, collector.toolExecutionsTotal)
	assert.NotNil(t, collector.agentExecutionsTotal)
	assert.NotNil(t, collector.kbQueriesTotal)
	assert.NotNil(t, collector.workingMemoryOpsTotal)
}

func TestNewCollector_DefaultRegisterer(t *testing.T) {
	// nil reg 注册到默认 Registry，namespace 每次唯一避免重复注册
	collector := NewCollector(nextTestNamespace(), nil, zap.NewNop())
	assert.NotNil(t, collector)

	collector.RecordWorkingMemoryOp("set", "success")
	value := testutil.ToFloat64(collector.workingMemoryOpsTotal.WithLabelValues("set", "success"))
	assert.Equal(t, 1.0, value)
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector := newTestCollector()

	collector.RecordLLMRequest(
		"anthropic",
		"claude-sonnet-4-5",
		"success",
		500*time.Millisecond,
		100, // prompt tokens
		50,  // completion tokens
	)

	requests := testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("anthropic", "claude-sonnet-4-5", "success"))
	assert.Equal(t, 1.0, requests)

	promptTokens := testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("anthropic", "claude-sonnet-4-5", "prompt"))
	assert.Equal(t, 100.0, promptTokens)

	completionTokens := testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("anthropic", "claude-sonnet-4-5", "completion"))
	assert.Equal(t, 50.0, completionTokens)

	durationCount := testutil.CollectAndCount(collector.llmRequestDuration)
	assert.Greater(t, durationCount, 0)
}

func TestCollector_RecordToolExecution(t *testing.T) {
	collector := newTestCollector()

	collector.RecordToolExecution("web_search", "success", 200*time.Millisecond)
	collector.RecordToolExecution("web_search", "success", 150*time.Millisecond)
	collector.RecordToolExecution("get_key_value", "error", 5*time.Millisecond)

	searches := testutil.ToFloat64(collector.toolExecutionsTotal.WithLabelValues("web_search", "success"))
	assert.Equal(t, 2.0, searches)

	failures := testutil.ToFloat64(collector.toolExecutionsTotal.WithLabelValues("get_key_value", "error"))
	assert.Equal(t, 1.0, failures)
}

func TestCollector_RecordAgentExecution(t *testing.T) {
	collector := newTestCollector()

	collector.RecordAgentExecution("financial_internal_analyst", "success", 1*time.Second)

	executions := testutil.ToFloat64(collector.agentExecutionsTotal.WithLabelValues("financial_internal_analyst", "success"))
	assert.Equal(t, 1.0, executions)

	durationCount := testutil.CollectAndCount(collector.agentExecutionDuration)
	assert.Greater(t, durationCount, 0)
}

func TestCollector_RecordKBQuery(t *testing.T) {
	collector := newTestCollector()

	collector.RecordKBQuery("financial-advisor-kb", "success", 20*time.Millisecond)

	queries := testutil.ToFloat64(collector.kbQueriesTotal.WithLabelValues("financial-advisor-kb", "success"))
	assert.Equal(t, 1.0, queries)
}

func TestCollector_RecordWorkingMemoryOp(t *testing.T) {
	collector := newTestCollector()

	collector.RecordWorkingMemoryOp("set", "success")
	collector.RecordWorkingMemoryOp("get", "success")
	collector.RecordWorkingMemoryOp("get", "error")

	sets := testutil.ToFloat64(collector.workingMemoryOpsTotal.WithLabelValues("set", "success"))
	assert.Equal(t, 1.0, sets)

	getErrors := testutil.ToFloat64(collector.workingMemoryOpsTotal.WithLabelValues("get", "error"))
	assert.Equal(t, 1.0, getErrors)
}

func TestCollector_NilCollectorIsNoop(t *testing.T) {
	var collector *Collector

	// 关闭指标时调用方直接持有 nil，记录方法不得 panic
	assert.NotPanics(t, func() {
		collector.RecordLLMRequest("anthropic", "claude-sonnet-4-5", "success", time.Second, 10, 5)
		collector.RecordToolExecution("web_search", "success", time.Millisecond)
		collector.RecordAgentExecution("financial_advisor", "success", time.Second)
		collector.RecordKBQuery("financial-advisor-kb", "error", time.Millisecond)
		collector.RecordWorkingMemoryOp("drop_table", "success")
	})
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := newTestCollector()

	// 并发记录多个指标
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.RecordLLMRequest("anthropic", "claude-sonnet-4-5", "success", 500*time.Millisecond, 100, 50)
			collector.RecordToolExecution("web_search", "success", 100*time.Millisecond)
			collector.RecordWorkingMemoryOp("set", "success")
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	requests := testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("anthropic", "claude-sonnet-4-5", "success"))
	assert.Equal(t, 10.0, requests)

	tools := testutil.ToFloat64(collector.toolExecutionsTotal.WithLabelValues("web_search", "success"))
	assert.Equal(t, 10.0, tools)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "success", StatusLabel(nil))
	assert.Equal(t, "error", StatusLabel(errors.New("boom")))
}
