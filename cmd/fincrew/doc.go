/*
Package main 提供 fincrew 命令行入口。

cmd/fincrew 是多智能体财务顾问的可执行入口:

  - run: 组装知识库、四个智能体与工具集, 按参数重建或发起一次编排
  - migrate: 注册表数据库的版本化迁移（golang-migrate + 内嵌 SQL）
  - health: 逐项探测数据库、Redis 与模型提供商
  - version: 构建信息（ldflags 注入 Version/BuildTime/GitCommit）

stdout 只输出运行结果与进度行, 结构化日志（zap）全部走 stderr。
*/
package main
