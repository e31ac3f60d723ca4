// Package agent 实现多智能体编排的核心实体:
//
//   - Definition / TaskTemplate: 从 YAML 模板声明式构建智能体与任务
//   - Agent: 绑定 LLM Provider 与工具集的工作智能体, 通过 ReAct 循环执行任务
//   - Registry: 按名称持久化的智能体注册表 (GORM), 支持强制重建与按名删除
//   - Supervisor: 主管智能体, 按顺序把任务委派给工作智能体并汇总产出
//
// 智能体之间通过运行期共享的工作记忆表交换中间状态, 表名由调用方
// 在附加指令中下发。
package agent
