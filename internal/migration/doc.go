// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 migration 提供数据库 Schema 迁移管理能力，支持 PostgreSQL、
MySQL 与 SQLite 三种数据库，基于 golang-migrate 实现。

# 概述

本包通过 embed.FS 内嵌各数据库方言的 SQL 迁移文件，结合
golang-migrate 引擎实现版本化的 Schema 变更管理。迁移文件建表
agents、knowledge_bases 与 kb_chunks，与 GORM 模型保持一致，
供禁用 AutoMigrate 的部署环境通过 `fincrew migrate` 建立 Schema。

# 核心接口与类型

  - Migrator：迁移器接口，定义 Up/Down/DownAll/Goto/Force/
    Version/Status/Info/Close 等完整操作集。
  - DefaultMigrator：Migrator 的默认实现，封装 golang-migrate 实例
    与数据库连接管理。
  - Config：迁移配置，包含数据库类型、连接 URL 与迁移记录表名。
  - DatabaseType：数据库类型枚举（postgres/mysql/sqlite）。
  - MigrationStatus / MigrationInfo：迁移状态与摘要信息。
  - CLI：命令行交互层，fincrew migrate 子命令经由它输出格式化结果。

# 主要能力

  - 多数据库支持：通过 DatabaseType 与内嵌 SQL 文件自动适配方言，
    SQLite 走纯 Go 驱动，无需 CGO。
  - 工厂函数：NewMigratorFromConfig / NewMigratorFromDatabaseConfig
    直接从应用配置创建迁移器。
  - CLI 集成：CLI 类型提供 RunUp/RunDown/RunDownAll/RunGoto/
    RunForce/RunVersion/RunStatus 等面向终端的格式化操作。
  - 辅助工具：ParseDatabaseType 解析类型字符串，BuildDatabaseURL
    按方言拼接连接 URL。
*/
package migration
