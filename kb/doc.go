// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package kb 提供托管知识库: 文档加载、token 感知分块、嵌入、
向量索引与余弦检索, 以及知识库注册记录的生命周期管理。

# 核心类型

  - Manager — CreateOrRetrieve / Sync / Query / Delete 的知识库门面
  - VectorStore — 向量索引接口（InMemoryVectorStore / GormVectorStore 两种实现）
  - DocumentChunker — 递归分块器, 在段落/句子边界按 token 预算切分
  - SourceLoader — 文档来源加载器接口, 由 kb/loader 子包实现
  - KnowledgeBaseRecord — GORM 注册记录（唯一名称、统计、同步时间）

# 同步管线

Sync 扫描来源目录, 逐文件加载为 Document, 递归分块后并发嵌入
（errgroup 限流）, 清空旧索引再整体写入, 最后更新注册记录。
来源目录缺失视为空库, 单个文件的加载失败只降级为日志。
*/
package kb
