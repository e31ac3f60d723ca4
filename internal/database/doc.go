// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package database 提供基于 GORM 的数据库连接池管理。

# 概述

PoolManager 封装 GORM 与 database/sql 的连接池配置, 统一管理连接
生命周期、空闲回收与最大连接数。可选的后台健康检查定时探活,
异常时通过 zap 输出诊断信息, Close 时立即停止。

# 主要能力

  - 连接池调优: MaxIdleConns/MaxOpenConns/ConnMaxLifetime, 零值回填默认
  - 健康检查: 周期 PingContext 探活, 输出连接数与空闲数
  - 事务辅助: WithTransaction 单次执行, WithTransactionRetry 指数退避
    重试可恢复错误（sqlite 写锁、死锁、序列化失败、连接层故障）

代理注册表与知识库记录共用这一个池, 默认方言是 sqlite,
重试分类优先覆盖 SQLITE_BUSY。
*/
package database
