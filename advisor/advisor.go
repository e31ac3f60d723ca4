// Package advisor 组装财务顾问编排: 内嵌的智能体与任务模板、
// 固定的工具集、知识库与注册表的生命周期管理, 以及一次完整的
// 主管调用。
package advisor

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waritsan/fincrew/agent"
	"github.com/waritsan/fincrew/internal/metrics"
	"github.com/waritsan/fincrew/kb"
	"github.com/waritsan/fincrew/llm"
	"github.com/waritsan/fincrew/tools"
	"github.com/waritsan/fincrew/trace"
	"github.com/waritsan/fincrew/workmem"
)

// =============================================================================
// 💼 财务顾问编排
// =============================================================================

// 固定资源名称。
const (
	// KnowledgeBaseName 知识库名称
	KnowledgeBaseName = "financial-advisor-kb"

	// SupervisorName 主管智能体名称
	SupervisorName = "financial_advisor"

	// InternalAnalystName 内部文档分析师
	InternalAnalystName = "financial_internal_analyst"

	// ExternalAnalystName 外部市场分析师
	ExternalAnalystName = "financial_external_analyst"

	// ReportWriterName 报告撰写人
	ReportWriterName = "formatted_report_writer"

	// runTablePrefix 运行级工作记忆表名前缀, 后接 UUID
	runTablePrefix = "financial-advisor-"
)

// 固定任务名称。
const (
	ExtractTaskName      = "financial_extract_all_task"
	ExternalDataTaskName = "financial_get_external_data_task"
	FinalReportTaskName  = "final_report_output_task"
)

//go:embed templates/agents.yaml templates/tasks.yaml
var templatesFS embed.FS

// WorkerNames 返回三个工作智能体的名称, 按任务顺序。
func WorkerNames() []string {
	return []string{InternalAnalystName, ExternalAnalystName, ReportWriterName}
}

// AgentNames 返回全部四个智能体名称, 主管在前。
func AgentNames() []string {
	return append([]string{SupervisorName}, WorkerNames()...)
}

// Dependencies 编排所需的外部依赖。
// Provider 与 Registry 必填; 其余为 nil 时对应工具退化为配置缺失错误。
type Dependencies struct {
	// 模型提供商, 驱动全部智能体
	Provider llm.Provider

	// 智能体注册表
	Registry *agent.Registry

	// 知识库管理器, 为 nil 时不注册 knowledge_base_lookup 工具
	KnowledgeBase *kb.Manager

	// 工作记忆存储, 为 nil 时不注册工作记忆工具
	WorkingMemory workmem.Store

	// 网页搜索工具配置（含后端 Provider）
	WebSearch tools.WebSearchToolConfig

	// 智能体运行参数（含 Tracer 与 Metrics）
	AgentOptions agent.Options

	Logger *zap.Logger
}

// RunResult 一次编排运行的结果。
type RunResult struct {
	// 最终报告文本
	Output string `json:"output"`

	// 按任务名记录的各任务产出
	TaskOutputs map[string]string `json:"task_outputs"`

	// 累计模型用量
	Usage llm.ChatUsage `json:"usage"`

	// 本次运行的共享工作记忆表名
	WorkingMemoryTable string `json:"working_memory_table"`
}

// Advisor 财务顾问编排器。
type Advisor struct {
	deps       Dependencies
	tools      tools.Registry
	defs       agent.DefinitionSet
	taskTmpls  agent.TemplateSet
	supervisor *agent.Supervisor
	logger     *zap.Logger
}

// New 创建编排器: 解析内嵌模板并搭建工具注册中心。
func New(deps Dependencies) (*Advisor, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("advisor: provider is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("advisor: agent registry is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "advisor"))

	defs, taskTmpls, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	toolReg := tools.NewDefaultRegistry(logger)
	if err := tools.RegisterWebSearchTool(toolReg, deps.WebSearch, logger); err != nil {
		return nil, fmt.Errorf("advisor: register web_search: %w", err)
	}
	if deps.WorkingMemory != nil {
		if err := tools.RegisterWorkingMemoryTools(toolReg, deps.WorkingMemory, logger); err != nil {
			return nil, fmt.Errorf("advisor: register working memory tools: %w", err)
		}
	}
	if deps.KnowledgeBase != nil {
		searcher := &kbSearcher{
			manager: deps.KnowledgeBase,
			tracer:  deps.AgentOptions.Tracer,
			metrics: deps.AgentOptions.Metrics,
		}
		if err := tools.RegisterKnowledgeBaseLookupTool(toolReg, searcher, logger); err != nil {
			return nil, fmt.Errorf("advisor: register knowledge_base_lookup: %w", err)
		}
	}

	return &Advisor{
		deps:      deps,
		tools:     toolReg,
		defs:      defs,
		taskTmpls: taskTmpls,
		logger:    logger,
	}, nil
}

// loadTemplates 解析内嵌的智能体与任务模板, 校验全部固定名称都存在。
func loadTemplates() (agent.DefinitionSet, agent.TemplateSet, error) {
	agentsYAML, err := templatesFS.ReadFile("templates/agents.yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("advisor: read agent templates: %w", err)
	}
	defs, err := agent.LoadDefinitions(agentsYAML)
	if err != nil {
		return nil, nil, fmt.Errorf("advisor: parse agent templates: %w", err)
	}
	for _, name := range AgentNames() {
		if _, err := defs.Get(name); err != nil {
			return nil, nil, fmt.Errorf("advisor: agent templates: %w", err)
		}
	}

	tasksYAML, err := templatesFS.ReadFile("templates/tasks.yaml")
	if err != nil {
		return nil, nil, fmt.Errorf("advisor: read task templates: %w", err)
	}
	taskTmpls, err := agent.LoadTaskTemplates(tasksYAML)
	if err != nil {
		return nil, nil, fmt.Errorf("advisor: parse task templates: %w", err)
	}
	for _, name := range []string{ExtractTaskName, ExternalDataTaskName, FinalReportTaskName} {
		if _, ok := taskTmpls[name]; !ok {
			return nil, nil, fmt.Errorf("advisor: task template %s missing", name)
		}
	}

	return defs, taskTmpls, nil
}

// EnsureKnowledgeBase 按名称取回或注册知识库。
func (a *Advisor) EnsureKnowledgeBase(ctx context.Context) (*kb.KnowledgeBaseRecord, bool, error) {
	if a.deps.KnowledgeBase == nil {
		return nil, false, fmt.Errorf("advisor: knowledge base not configured")
	}
	return a.deps.KnowledgeBase.CreateOrRetrieve(ctx)
}

// SyncKnowledgeBase 重建知识库索引并返回统计。
func (a *Advisor) SyncKnowledgeBase(ctx context.Context) (*kb.SyncStats, error) {
	if a.deps.KnowledgeBase == nil {
		return nil, fmt.Errorf("advisor: knowledge base not configured")
	}
	return a.deps.KnowledgeBase.Sync(ctx)
}

// SetupAgents 注册四个智能体并搭建主管。
// recreate 为 true 时开启强制重建, 并先按名删除主管旧记录。
func (a *Advisor) SetupAgents(ctx context.Context, recreate bool) error {
	a.deps.Registry.SetForceRecreateDefault(recreate)
	if recreate {
		if _, err := a.deps.Registry.DeleteByName(ctx, SupervisorName); err != nil {
			return err
		}
	}

	workers := make([]*agent.Agent, 0, len(WorkerNames()))
	for _, name := range WorkerNames() {
		def, err := a.defs.Get(name)
		if err != nil {
			return err
		}
		if err := a.registerAgent(ctx, name, def); err != nil {
			return err
		}
		worker, err := agent.New(name, def, a.deps.Provider, a.tools, a.deps.AgentOptions, a.logger)
		if err != nil {
			return err
		}
		workers = append(workers, worker)
	}

	supDef, err := a.defs.Get(SupervisorName)
	if err != nil {
		return err
	}
	if err := a.registerAgent(ctx, SupervisorName, supDef); err != nil {
		return err
	}
	supervisor, err := agent.NewSupervisor(SupervisorName, supDef, a.deps.Provider, workers,
		a.deps.AgentOptions, a.logger)
	if err != nil {
		return err
	}

	a.supervisor = supervisor
	a.logger.Info("agents ready",
		zap.Strings("workers", supervisor.Workers()),
		zap.Bool("recreate", recreate))
	return nil
}

// registerAgent 把模板落到注册表记录。
func (a *Advisor) registerAgent(ctx context.Context, name string, def agent.Definition) error {
	_, _, err := a.deps.Registry.CreateOrRetrieve(ctx, name, agent.Record{
		Role:      def.Role,
		Goal:      def.Goal,
		Backstory: def.Backstory,
		Model:     def.Model,
		Tools:     strings.Join(def.Tools, ","),
	})
	return err
}

// Invoke 执行一次完整编排: 构建三个任务, 生成本次运行的工作记忆表名,
// 顺序调用主管并返回最终报告。必须先 SetupAgents。
func (a *Advisor) Invoke(ctx context.Context, companyName string, iterations int) (*RunResult, error) {
	if a.supervisor == nil {
		return nil, fmt.Errorf("advisor: agents not set up")
	}
	if strings.TrimSpace(companyName) == "" {
		return nil, fmt.Errorf("advisor: company name is required")
	}
	if iterations < 1 {
		return nil, fmt.Errorf("advisor: iterations must be at least 1, got %d", iterations)
	}

	inputs := map[string]string{
		"company_name":             companyName,
		"feedback_iteration_count": strconv.Itoa(iterations),
	}

	tasks := make([]*agent.Task, 0, 3)
	for _, name := range []string{ExtractTaskName, ExternalDataTaskName, FinalReportTaskName} {
		task, err := agent.NewTask(name, a.taskTmpls, inputs)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	table := runTablePrefix + uuid.NewString()
	tracer := a.deps.AgentOptions.Tracer
	tracer.RunStarted(table, companyName)

	start := time.Now()
	res, err := a.supervisor.InvokeWithTasks(ctx, tasks, agent.InvokeOptions{
		Processing:             agent.ProcessingSequential,
		AdditionalInstructions: additionalInstructions(table),
	})
	tracer.RunFinished(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Output:             res.Output,
		TaskOutputs:        res.TaskOutputs,
		Usage:              res.Usage,
		WorkingMemoryTable: table,
	}, nil
}

// Cleanup 删除四个智能体与知识库索引记录, 尽力而为:
// 单项失败只记日志, 全部失败合并返回。来源文档不受影响。
func (a *Advisor) Cleanup(ctx context.Context) error {
	var errs []error

	for _, name := range AgentNames() {
		deleted, err := a.deps.Registry.DeleteByName(ctx, name)
		if err != nil {
			a.logger.Warn("failed to delete agent", zap.String("name", name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if !deleted {
			a.logger.Info("agent already absent", zap.String("name", name))
		}
	}

	if a.deps.KnowledgeBase != nil {
		if err := a.deps.KnowledgeBase.Delete(ctx); err != nil {
			a.logger.Warn("failed to delete knowledge base", zap.Error(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// additionalInstructions 生成下发给主管与全体协作者的共享指令。
func additionalInstructions(table string) string {
	return fmt.Sprintf(
		"Use a single working-memory table for this entire set of tasks, with table name: %s. "+
			"Tell your collaborators this table name as part of every request, so that they are "+
			"not confused and they share state effectively. The keys they use in that table will "+
			"allow them to keep track of any number of state items they require. When you have "+
			"completed all tasks, summarize your work, and share the table name so that all the "+
			"results can be used and analyzed.", table)
}

// =============================================================================
// 🔌 知识库工具适配
// =============================================================================

// kbSearcher 把 kb.Manager 适配成 knowledge_base_lookup 工具的检索后端,
// 顺带镜像检索事件到追踪器与指标。
type kbSearcher struct {
	manager *kb.Manager
	tracer  *trace.Tracer
	metrics *metrics.Collector
}

func (s *kbSearcher) Search(ctx context.Context, query string) ([]tools.KnowledgeHit, error) {
	start := time.Now()
	results, err := s.manager.Query(ctx, query)
	duration := time.Since(start)
	s.metrics.RecordKBQuery(s.manager.Name(), metrics.StatusLabel(err), duration)
	if err != nil {
		return nil, err
	}
	s.tracer.KBLookup(s.manager.Name(), query, len(results), duration)

	hits := make([]tools.KnowledgeHit, len(results))
	for i, r := range results {
		source, _ := r.Document.Metadata["source_file"].(string)
		hits[i] = tools.KnowledgeHit{
			Source:  source,
			Content: r.Document.Content,
			Score:   r.Score,
		}
	}
	return hits, nil
}
