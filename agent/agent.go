package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/internal/metrics"
	"github.com/waritsan/fincrew/llm"
	"github.com/waritsan/fincrew/tools"
	"github.com/waritsan/fincrew/trace"
)

// =============================================================================
// 🤖 工作智能体
// =============================================================================

// Options 智能体运行参数, 零值字段回落到模板或内置默认值。
type Options struct {
	// 工具调用循环的最大迭代次数
	MaxIterations int

	// 温度参数
	Temperature float64

	// 单次补全的最大 Token 数
	MaxTokens int

	// 单个任务的超时时间, 0 表示不限
	Timeout time.Duration

	// 运行追踪器, nil 时不追踪
	Tracer *trace.Tracer

	// 指标收集器, nil 时不记录
	Metrics *metrics.Collector
}

// ExecuteOptions 单次任务执行的附加输入。
type ExecuteOptions struct {
	// 此前任务的产出, 作为上下文注入
	Context string

	// 附加指令（如共享工作记忆表名）, 附加在任务描述之后
	AdditionalInstructions string
}

// Result 一次任务执行的结果。
type Result struct {
	// 最终文本产出
	Output string `json:"output"`

	// 本次执行累计的模型用量
	Usage llm.ChatUsage `json:"usage"`

	// ReAct 循环步数
	Steps int `json:"steps"`
}

// Agent 绑定 Provider 与工具集的工作智能体。
// 每次 Execute 走一轮 ReAct 循环: 模型决定调用哪些工具,
// 工具结果回灌给模型, 直到产出最终文本。
type Agent struct {
	name     string
	def      Definition
	provider llm.Provider
	registry tools.Registry
	executor tools.Executor
	opts     Options
	logger   *zap.Logger
}

// New 创建工作智能体。registry 为 nil 时智能体不带工具。
func New(name string, def Definition, provider llm.Provider, registry tools.Registry, opts Options, logger *zap.Logger) (*Agent, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}
	if provider == nil {
		return nil, fmt.Errorf("agent %s: provider is required", name)
	}
	if opts.MaxIterations <= 0 {
		if def.MaxIterations > 0 {
			opts.MaxIterations = def.MaxIterations
		} else {
			opts.MaxIterations = 10
		}
	}
	if opts.Temperature == 0 && def.Temperature > 0 {
		opts.Temperature = def.Temperature
	}
	if opts.MaxTokens == 0 && def.MaxTokens > 0 {
		opts.MaxTokens = def.MaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Agent{
		name:     name,
		def:      def,
		provider: provider,
		registry: registry,
		opts:     opts,
		logger:   logger.With(zap.String("component", "agent"), zap.String("agent", name)),
	}
	if registry != nil {
		a.executor = tools.NewDefaultExecutor(registry, logger)
	}
	return a, nil
}

// Name 返回智能体名称。
func (a *Agent) Name() string { return a.name }

// Definition 返回构建时的模板。
func (a *Agent) Definition() Definition { return a.def }

// Execute 执行一个任务并返回最终产出。
// 工具执行失败不会中断循环, 失败信息作为工具结果反馈给模型。
func (a *Agent) Execute(ctx context.Context, task *Task, opts ExecuteOptions) (*Result, error) {
	if task == nil {
		return nil, fmt.Errorf("task is required")
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	a.logger.Info("executing task", zap.String("task", task.Name))

	req := &llm.ChatRequest{
		Model:       a.def.Model,
		Messages:    a.buildMessages(task, opts),
		Temperature: float32(a.opts.Temperature),
		MaxTokens:   a.opts.MaxTokens,
		Tools:       a.toolSchemas(),
	}

	var usage llm.ChatUsage
	react := tools.NewReActExecutor(a.provider, a.executor, tools.ReActConfig{
		MaxIterations: a.opts.MaxIterations,
		OnStep: func(step tools.ReActStep) {
			usage.Add(step.Usage)
			a.traceStep(task.Name, step)
		},
	}, a.logger)

	resp, steps, err := react.Execute(ctx, req)
	duration := time.Since(start)
	a.opts.Metrics.RecordAgentExecution(a.name, metrics.StatusLabel(err), duration)

	if err != nil {
		a.logger.Warn("task execution failed",
			zap.String("task", task.Name),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, fmt.Errorf("agent %s: task %s: %w", a.name, task.Name, err)
	}

	output := resp.FirstContent()
	if strings.TrimSpace(output) == "" {
		return nil, fmt.Errorf("agent %s: task %s: empty model output", a.name, task.Name)
	}

	a.opts.Metrics.RecordLLMRequest(a.provider.Name(), resp.Model, metrics.StatusLabel(nil),
		duration, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	a.opts.Tracer.ModelUsage(a.name, resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	a.logger.Info("task executed",
		zap.String("task", task.Name),
		zap.Int("steps", len(steps)),
		zap.Duration("duration", duration))

	return &Result{Output: output, Usage: usage, Steps: len(steps)}, nil
}

// HealthCheck 透传到底层 Provider。
func (a *Agent) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return a.provider.HealthCheck(ctx)
}

// buildMessages 组装系统提示词与任务消息。
func (a *Agent) buildMessages(task *Task, opts ExecuteOptions) []llm.Message {
	var user strings.Builder
	user.WriteString(task.Prompt())

	if prior := strings.TrimSpace(opts.Context); prior != "" {
		user.WriteString("\n\nContext from earlier tasks:\n")
		user.WriteString(prior)
	}
	if extra := strings.TrimSpace(opts.AdditionalInstructions); extra != "" {
		user.WriteString("\n\nAdditional instructions:\n")
		user.WriteString(extra)
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: a.def.SystemPrompt()},
		{Role: llm.RoleUser, Content: user.String()},
	}
}

// toolSchemas 返回该智能体可用的工具 Schema。
// 模板指定了工具列表时只暴露列出的工具。
func (a *Agent) toolSchemas() []llm.ToolSchema {
	if a.registry == nil {
		return nil
	}
	all := a.registry.List()
	if len(a.def.Tools) == 0 {
		return all
	}

	allowed := make(map[string]bool, len(a.def.Tools))
	for _, name := range a.def.Tools {
		allowed[name] = true
	}
	schemas := make([]llm.ToolSchema, 0, len(a.def.Tools))
	for _, schema := range all {
		if allowed[schema.Name] {
			schemas = append(schemas, schema)
		}
	}
	return schemas
}

// traceStep 把一轮 ReAct 的工具调用镜像到追踪器与指标。
func (a *Agent) traceStep(taskName string, step tools.ReActStep) {
	args := make(map[string]string, len(step.Actions))
	for _, action := range step.Actions {
		args[action.ID] = string(action.Arguments)
	}
	for _, obs := range step.Observations {
		var obsErr error
		if obs.Error != "" {
			obsErr = errors.New(obs.Error)
		}
		a.opts.Metrics.RecordToolExecution(obs.Name, metrics.StatusLabel(obsErr), obs.Duration)
		a.opts.Tracer.ToolCall(a.name, obs.Name, obs.Duration, obsErr,
			args[obs.ToolCallID], string(obs.Result))
	}
	if len(step.Actions) == 0 && step.Usage.TotalTokens > 0 {
		a.logger.Debug("final step",
			zap.String("task", taskName),
			zap.Int("tokens", step.Usage.TotalTokens))
	}
}
