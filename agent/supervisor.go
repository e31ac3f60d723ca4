package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/internal/metrics"
	"github.com/waritsan/fincrew/llm"
)

// =============================================================================
// 🧑‍💼 主管智能体
// =============================================================================

// ProcessingType 任务处理方式。
type ProcessingType string

const (
	// ProcessingSequential 顺序执行: 任务 N+1 能看到任务 N 的产出。
	ProcessingSequential ProcessingType = "sequential"
)

// InvokeOptions 一次编排调用的参数。
type InvokeOptions struct {
	// 处理方式, 为空时按顺序执行; 当前只支持 sequential
	Processing ProcessingType

	// 附加指令, 下发给每个工作智能体（如共享工作记忆表名）
	AdditionalInstructions string
}

// InvokeResult 一次编排调用的结果。
type InvokeResult struct {
	// 主管汇总后的最终文本
	Output string `json:"output"`

	// 按任务名记录的各任务产出
	TaskOutputs map[string]string `json:"task_outputs"`

	// 全部任务与汇总调用累计的模型用量
	Usage llm.ChatUsage `json:"usage"`
}

// Supervisor 主管智能体: 持有有序的工作智能体列表,
// 把任务逐个委派出去并汇总最终产出。
type Supervisor struct {
	name     string
	def      Definition
	provider llm.Provider
	workers  []*Agent
	byName   map[string]*Agent
	opts     Options
	logger   *zap.Logger
}

// NewSupervisor 创建主管智能体。workers 的顺序即无指派时的委派顺序。
func NewSupervisor(name string, def Definition, provider llm.Provider, workers []*Agent, opts Options, logger *zap.Logger) (*Supervisor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("supervisor name is required")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("supervisor %s: %w", name, err)
	}
	if provider == nil {
		return nil, fmt.Errorf("supervisor %s: provider is required", name)
	}
	if len(workers) == 0 {
		return nil, fmt.Errorf("supervisor %s: at least one worker is required", name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byName := make(map[string]*Agent, len(workers))
	for _, w := range workers {
		if _, dup := byName[w.Name()]; dup {
			return nil, fmt.Errorf("supervisor %s: duplicate worker %s", name, w.Name())
		}
		byName[w.Name()] = w
	}

	return &Supervisor{
		name:     name,
		def:      def,
		provider: provider,
		workers:  workers,
		byName:   byName,
		opts:     opts,
		logger:   logger.With(zap.String("component", "supervisor"), zap.String("supervisor", name)),
	}, nil
}

// Name 返回主管名称。
func (s *Supervisor) Name() string { return s.name }

// Workers 返回工作智能体名称, 按委派顺序。
func (s *Supervisor) Workers() []string {
	names := make([]string, len(s.workers))
	for i, w := range s.workers {
		names[i] = w.Name()
	}
	return names
}

// InvokeWithTasks 按顺序执行任务列表并汇总最终产出。
// 每个任务的产出会作为上下文传给后续任务; 任何任务失败即中断整次调用。
func (s *Supervisor) InvokeWithTasks(ctx context.Context, tasks []*Task, opts InvokeOptions) (*InvokeResult, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("supervisor %s: no tasks to invoke", s.name)
	}
	if opts.Processing != "" && opts.Processing != ProcessingSequential {
		return nil, fmt.Errorf("supervisor %s: unsupported processing type %q (only %q)",
			s.name, opts.Processing, ProcessingSequential)
	}

	s.logger.Info("invoking with tasks",
		zap.Int("tasks", len(tasks)),
		zap.Strings("workers", s.Workers()))

	result := &InvokeResult{TaskOutputs: make(map[string]string, len(tasks))}
	var contextParts []string

	for _, task := range tasks {
		worker, err := s.routeTask(ctx, task)
		if err != nil {
			return nil, err
		}

		s.opts.Tracer.TaskStarted(task.Name, worker.Name(), task.Description)
		s.opts.Tracer.Delegation(s.name, worker.Name(), task.Name)

		taskStart := time.Now()
		res, err := worker.Execute(ctx, task, ExecuteOptions{
			Context:                strings.Join(contextParts, "\n\n"),
			AdditionalInstructions: opts.AdditionalInstructions,
		})
		s.opts.Tracer.TaskFinished(task.Name, time.Since(taskStart), err)
		if err != nil {
			return nil, fmt.Errorf("supervisor %s: %w", s.name, err)
		}

		result.TaskOutputs[task.Name] = res.Output
		result.Usage.Add(res.Usage)
		contextParts = append(contextParts,
			fmt.Sprintf("[%s by %s]\n%s", task.Name, worker.Name(), res.Output))
	}

	output, usage, err := s.synthesize(ctx, tasks, result.TaskOutputs, opts.AdditionalInstructions)
	if err != nil {
		return nil, err
	}
	result.Output = output
	result.Usage.Add(usage)

	s.logger.Info("invocation completed",
		zap.Int("tasks", len(tasks)),
		zap.Int("total_tokens", result.Usage.TotalTokens))

	return result, nil
}

// routeTask 选出执行任务的工作智能体:
// 模板指定了 agent 时直接用, 否则让主管模型按角色挑选。
func (s *Supervisor) routeTask(ctx context.Context, task *Task) (*Agent, error) {
	if task.Worker != "" {
		worker, ok := s.byName[task.Worker]
		if !ok {
			return nil, fmt.Errorf("supervisor %s: task %s names unknown worker %q (have: %s)",
				s.name, task.Name, task.Worker, strings.Join(s.Workers(), ", "))
		}
		return worker, nil
	}
	return s.delegate(ctx, task), nil
}

// delegate 让主管模型按工作智能体的角色描述挑选执行者,
// 解析失败时回落到列表中的第一个。
func (s *Supervisor) delegate(ctx context.Context, task *Task) *Agent {
	var roster strings.Builder
	for _, w := range s.workers {
		fmt.Fprintf(&roster, "- %s: %s\n", w.Name(), w.Definition().Role)
	}

	prompt := fmt.Sprintf(
		"Task: %s\n\nAvailable collaborators:\n%s\nRespond with only the name of the single best collaborator for this task.",
		task.Description, roster.String())

	resp, err := s.provider.Completion(ctx, &llm.ChatRequest{
		Model: s.def.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: s.def.SystemPrompt()},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens: 64,
	})
	if err != nil {
		s.logger.Warn("delegation call failed, using first worker",
			zap.String("task", task.Name), zap.Error(err))
		return s.workers[0]
	}

	answer := strings.ToLower(resp.FirstContent())
	for _, w := range s.workers {
		if strings.Contains(answer, strings.ToLower(w.Name())) {
			return w
		}
	}

	s.logger.Warn("delegation answer matched no worker, using first worker",
		zap.String("task", task.Name), zap.String("answer", resp.FirstContent()))
	return s.workers[0]
}

// synthesize 让主管模型把各任务产出汇总成最终答复。
func (s *Supervisor) synthesize(ctx context.Context, tasks []*Task, outputs map[string]string, extra string) (string, llm.ChatUsage, error) {
	var b strings.Builder
	b.WriteString("All tasks are complete. Summarize the combined work into a single final answer.\n")
	for _, task := range tasks {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", task.Name, outputs[task.Name])
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString("\nAdditional instructions:\n")
		b.WriteString(extra)
	}

	start := time.Now()
	resp, err := s.provider.Completion(ctx, &llm.ChatRequest{
		Model: s.def.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: s.def.SystemPrompt()},
			{Role: llm.RoleUser, Content: b.String()},
		},
		MaxTokens: s.opts.MaxTokens,
	})
	s.opts.Metrics.RecordLLMRequest(s.provider.Name(), s.def.Model, metrics.StatusLabel(err),
		time.Since(start), 0, 0)
	if err != nil {
		return "", llm.ChatUsage{}, fmt.Errorf("supervisor %s: synthesis failed: %w", s.name, err)
	}

	output := resp.FirstContent()
	if strings.TrimSpace(output) == "" {
		return "", resp.Usage, fmt.Errorf("supervisor %s: empty synthesis output", s.name)
	}

	s.opts.Tracer.ModelUsage(s.name, resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return output, resp.Usage, nil
}
