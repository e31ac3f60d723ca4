package agent

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 📜 智能体模板
// =============================================================================

// Definition 单个智能体的声明式模板。
// 与任务模板一样从 YAML 文档加载, 文档按智能体名称组织:
//
//	financial_internal_analyst:
//	  role: Internal Financial Analyst
//	  goal: ...
//	  backstory: ...
type Definition struct {
	// 角色, 写入系统提示词开头
	Role string `yaml:"role" json:"role"`

	// 目标
	Goal string `yaml:"goal" json:"goal"`

	// 背景设定与工作方式说明
	Backstory string `yaml:"backstory,omitempty" json:"backstory,omitempty"`

	// LLM Provider 名称, 为空时用运行配置的默认 Provider
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty"`

	// 模型名, 为空时用 Provider 默认模型
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// 温度参数, 0 时用运行配置默认值
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// 单次补全的最大 Token 数, 0 时用运行配置默认值
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// 工具调用循环的最大迭代次数, 0 时用运行配置默认值
	MaxIterations int `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`

	// 工具名称列表, 为空时智能体拿到注册表中的全部工具
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty"`

	// 主管模板专用: 协作说明, 附加在主管系统提示词之后
	CollaborationPrompt string `yaml:"collaboration_prompt,omitempty" json:"collaboration_prompt,omitempty"`
}

// Validate 校验模板完整性。
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Role) == "" {
		return fmt.Errorf("definition role is required")
	}
	if strings.TrimSpace(d.Goal) == "" {
		return fmt.Errorf("definition goal is required")
	}
	return nil
}

// SystemPrompt 把模板渲染成系统提示词。
func (d Definition) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(strings.TrimSpace(d.Role))
	b.WriteString(".")
	if goal := strings.TrimSpace(d.Goal); goal != "" {
		b.WriteString("\n\nYour goal: ")
		b.WriteString(goal)
	}
	if backstory := strings.TrimSpace(d.Backstory); backstory != "" {
		b.WriteString("\n\n")
		b.WriteString(backstory)
	}
	if collab := strings.TrimSpace(d.CollaborationPrompt); collab != "" {
		b.WriteString("\n\n")
		b.WriteString(collab)
	}
	return b.String()
}

// DefinitionSet agents.yaml 文档: 智能体名称 -> 模板。
type DefinitionSet map[string]Definition

// Get 取回命名模板, 不存在时报错并列出可用名称。
func (s DefinitionSet) Get(name string) (Definition, error) {
	def, ok := s[name]
	if !ok {
		return Definition{}, fmt.Errorf("agent definition %q not found (available: %s)",
			name, strings.Join(s.Names(), ", "))
	}
	if err := def.Validate(); err != nil {
		return Definition{}, fmt.Errorf("agent definition %q: %w", name, err)
	}
	return def, nil
}

// Names 返回全部模板名称, 字典序排序。
func (s DefinitionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDefinitions 从 YAML 字节解析智能体模板集。
func LoadDefinitions(data []byte) (DefinitionSet, error) {
	var set DefinitionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse agent definitions: %w", err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("agent definitions document is empty")
	}
	return set, nil
}

// LoadDefinitionsFile 从文件加载智能体模板集。
func LoadDefinitionsFile(path string) (DefinitionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent definitions file: %w", err)
	}
	return LoadDefinitions(data)
}
