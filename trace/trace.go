package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level 追踪详细级别，core < outline < all。
type Level int

const (
	// LevelCore 只输出运行与任务生命周期
	LevelCore Level = iota
	// LevelOutline 额外输出委派、工具调用、知识库检索与模型用量
	LevelOutline
	// LevelAll 再额外输出提示词与工具参数等载荷内容
	LevelAll
)

// ParseLevel 解析级别字符串（core/outline/all）
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "core":
		return LevelCore, nil
	case "outline":
		return LevelOutline, nil
	case "all":
		return LevelAll, nil
	default:
		return LevelCore, fmt.Errorf("unsupported trace level: %s", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelOutline:
		return "outline"
	case LevelAll:
		return "all"
	default:
		return "core"
	}
}

// Config 追踪器配置
type Config struct {
	// 详细级别
	Level Level
	// 渲染目标，nil 时写 stdout。进度走这里，结构化日志走 Logger（stderr）。
	Output io.Writer
	// zap 镜像，nil 时不镜像
	Logger *zap.Logger
}

// Tracer 把一次运行的关键事件渲染成人类可读的 stdout 行，
// 同时镜像到 zap。nil *Tracer 合法，所有方法按空操作处理。
type Tracer struct {
	level  Level
	out    io.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewTracer 创建追踪器
func NewTracer(cfg Config) *Tracer {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{
		level:  cfg.Level,
		out:    out,
		logger: logger.With(zap.String("component", "trace")),
	}
}

// Level 返回当前级别
func (t *Tracer) Level() Level {
	if t == nil {
		return LevelCore
	}
	return t.level
}

func (t *Tracer) enabled(min Level) bool {
	return t != nil && t.level >= min
}

func (t *Tracer) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// =============================================================================
// 运行与任务生命周期（core）
// =============================================================================

// RunStarted 记录一次运行的开始
func (t *Tracer) RunStarted(runID, company string) {
	if !t.enabled(LevelCore) {
		return
	}
	t.printf("run started: %s (company: %s)\n", runID, company)
	t.logger.Info("run started", zap.String("run_id", runID), zap.String("company", company))
}

// RunFinished 记录一次运行的结束
func (t *Tracer) RunFinished(d time.Duration, err error) {
	if !t.enabled(LevelCore) {
		return
	}
	if err != nil {
		t.printf("run finished with error in %s\n", fmtDuration(d))
		t.logger.Warn("run finished with error", zap.Duration("duration", d), zap.Error(err))
		return
	}
	t.printf("run finished in %s\n", fmtDuration(d))
	t.logger.Info("run finished", zap.Duration("duration", d))
}

// TaskStarted 记录任务开始；all 级别附带任务描述
func (t *Tracer) TaskStarted(task, agent, description string) {
	if !t.enabled(LevelCore) {
		return
	}
	t.printf("  task started: %s (agent: %s)\n", task, agent)
	if t.enabled(LevelAll) && description != "" {
		t.printf("    description: %s\n", truncate(description, payloadLimit))
	}
	t.logger.Info("task started", zap.String("task", task), zap.String("agent", agent))
}

// TaskFinished 记录任务结束
func (t *Tracer) TaskFinished(task string, d time.Duration, err error) {
	if !t.enabled(LevelCore) {
		return
	}
	if err != nil {
		t.printf("  task failed: %s in %s: %s\n", task, fmtDuration(d), err)
		t.logger.Warn("task failed", zap.String("task", task), zap.Duration("duration", d), zap.Error(err))
		return
	}
	t.printf("  task finished: %s in %s\n", task, fmtDuration(d))
	t.logger.Info("task finished", zap.String("task", task), zap.Duration("duration", d))
}

// =============================================================================
// 协作细节（outline）
// =============================================================================

// Delegation 记录主管向工作代理的任务委派
func (t *Tracer) Delegation(supervisor, worker, task string) {
	if !t.enabled(LevelOutline) {
		return
	}
	t.printf("    delegate: %s -> %s (%s)\n", supervisor, worker, task)
	t.logger.Debug("delegation",
		zap.String("supervisor", supervisor),
		zap.String("worker", worker),
		zap.String("task", task))
}

// ToolCall 记录一次工具调用；all 级别附带参数与结果载荷
func (t *Tracer) ToolCall(agent, tool string, d time.Duration, err error, args, result string) {
	if !t.enabled(LevelOutline) {
		return
	}
	if err != nil {
		t.printf("    tool: %s failed in %s: %s\n", tool, fmtDuration(d), err)
	} else {
		t.printf("    tool: %s ok in %s\n", tool, fmtDuration(d))
	}
	if t.enabled(LevelAll) {
		if args != "" {
			t.printf("      args: %s\n", truncate(args, payloadLimit))
		}
		if err == nil && result != "" {
			t.printf("      result: %s\n", truncate(result, payloadLimit))
		}
	}
	t.logger.Debug("tool call",
		zap.String("agent", agent),
		zap.String("tool", tool),
		zap.Duration("duration", d),
		zap.Error(err))
}

// KBLookup 记录知识库检索；all 级别附带查询文本
func (t *Tracer) KBLookup(kb, query string, hits int, d time.Duration) {
	if !t.enabled(LevelOutline) {
		return
	}
	t.printf("    kb: %s hits=%d in %s\n", kb, hits, fmtDuration(d))
	if t.enabled(LevelAll) && query != "" {
		t.printf("      query: %s\n", truncate(query, payloadLimit))
	}
	t.logger.Debug("kb lookup",
		zap.String("kb", kb),
		zap.Int("hits", hits),
		zap.Duration("duration", d))
}

// ModelUsage 记录一次模型调用的 token 用量
func (t *Tracer) ModelUsage(agent, model string, promptTokens, completionTokens int) {
	if !t.enabled(LevelOutline) {
		return
	}
	t.printf("    model: %s prompt=%d completion=%d (agent: %s)\n", model, promptTokens, completionTokens, agent)
	t.logger.Debug("model usage",
		zap.String("agent", agent),
		zap.String("model", model),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens))
}

// =============================================================================
// 渲染辅助
// =============================================================================

// payloadLimit all 级别载荷的最大渲染长度（按 rune 计）
const payloadLimit = 500

func fmtDuration(d time.Duration) string {
	if d >= time.Second {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// truncate 按 rune 截断，内容可能是泰文等多字节文本
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
