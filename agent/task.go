package agent

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 📋 任务模板
// =============================================================================

// TaskTemplate 单个任务的声明式模板, tasks.yaml 文档按任务名称组织:
//
//	financial_extract_all_task:
//	  description: Extract all financial data for {company_name} ...
//	  expected_output: ...
//	  agent: financial_internal_analyst
type TaskTemplate struct {
	// 任务描述, 支持 {placeholder} 占位符
	Description string `yaml:"description" json:"description"`

	// 期望产出, 同样支持占位符
	ExpectedOutput string `yaml:"expected_output" json:"expected_output"`

	// 指定执行该任务的工作智能体名称; 为空时由主管自行委派
	Agent string `yaml:"agent,omitempty" json:"agent,omitempty"`
}

// TemplateSet tasks.yaml 文档: 任务名称 -> 模板。
type TemplateSet map[string]TaskTemplate

// Names 返回全部任务名称, 字典序排序。
func (s TemplateSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadTaskTemplates 从 YAML 字节解析任务模板集。
func LoadTaskTemplates(data []byte) (TemplateSet, error) {
	var set TemplateSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse task templates: %w", err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("task templates document is empty")
	}
	return set, nil
}

// LoadTaskTemplatesFile 从文件加载任务模板集。
func LoadTaskTemplatesFile(path string) (TemplateSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task templates file: %w", err)
	}
	return LoadTaskTemplates(data)
}

// Task 由模板加运行输入实例化的任务。
type Task struct {
	// 任务名称（模板键）
	Name string `json:"name"`

	// 插值后的任务描述
	Description string `json:"description"`

	// 插值后的期望产出
	ExpectedOutput string `json:"expected_output"`

	// 指定的工作智能体名称, 可为空
	Worker string `json:"worker,omitempty"`
}

// NewTask 按名称从模板集构建任务, 把 inputs 插入 {placeholder} 占位符。
// 模板中不存在的占位符保持原样: 描述文本里允许出现字面花括号。
func NewTask(name string, templates TemplateSet, inputs map[string]string) (*Task, error) {
	tpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("task template %q not found (available: %s)",
			name, strings.Join(templates.Names(), ", "))
	}
	if strings.TrimSpace(tpl.Description) == "" {
		return nil, fmt.Errorf("task template %q has no description", name)
	}

	return &Task{
		Name:           name,
		Description:    interpolate(tpl.Description, inputs),
		ExpectedOutput: interpolate(tpl.ExpectedOutput, inputs),
		Worker:         tpl.Agent,
	}, nil
}

// Prompt 把任务渲染成交给智能体的用户消息。
func (t *Task) Prompt() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(t.Description))
	if expected := strings.TrimSpace(t.ExpectedOutput); expected != "" {
		b.WriteString("\n\nExpected output:\n")
		b.WriteString(expected)
	}
	return b.String()
}

// interpolate 把 {key} 形式的占位符替换为 inputs 中的值。
func interpolate(text string, inputs map[string]string) string {
	if len(inputs) == 0 {
		return text
	}
	pairs := make([]string, 0, len(inputs)*2)
	for key, value := range inputs {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
