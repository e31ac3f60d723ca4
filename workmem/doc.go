// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 workmem 提供基于 Redis 的运行时工作记忆, 供同一次运行中的
多个智能体共享中间状态。

# 概述

一次顾问运行对应一张工作记忆表(表名由运行方生成, 通常带随机后缀),
表内是普通的键值对。底层将每张表映射为一个 Redis hash, 写入时自动
建表, 可选 TTL 在每次写入时刷新, 运行结束后表可整体删除。

# 核心类型

  - Store: 工作记忆抽象, 提供 Set/Get/Keys/DropTable/Ping/Close。
  - RedisStore: go-redis 实现, 支持连接池与可选 TLS。
  - Config: 地址、连接池、键前缀与 TTL 等参数。

键不存在时 Get 返回 ErrKeyNotFound 哨兵错误, 可用 IsKeyNotFound 判断。
*/
package workmem
