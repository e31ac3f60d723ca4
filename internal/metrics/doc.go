// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 LLM、工具、
Agent、知识库与工作记忆五大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
工厂注册机制，可注入自定义 Registerer（测试隔离）或默认注册到全局
Registry。所有指标按 namespace 隔离，支持多维度 label 分组。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram 向量指标，
    按业务域分组管理。nil *Collector 为合法空实现，指标关闭时
    调用方无需判空。

# 主要能力

  - LLM 指标：请求总数、请求耗时、Token 用量（prompt/completion），
    按 provider/model 分组。
  - 工具指标：执行总数与执行耗时，按 tool/status 分组。
  - Agent 指标：执行总数与执行耗时，按 agent/status 分组。
  - 知识库指标：查询总数与查询耗时，按 kb/status 分组。
  - 工作记忆指标：操作计数，按 operation/status 分组。
  - StatusLabel：将 error 归类为 success/error 标签值。
*/
package metrics
