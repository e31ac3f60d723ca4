// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 embedding 提供文本嵌入 Provider 接口与实现.

# 实现

  - OpenAIProvider: OpenAI 兼容 /v1/embeddings 接口
  - LocalProvider: 确定性哈希嵌入, 用于离线开发与测试

# 选择

通过 [New] 按配置名称构造; 未配置 API key 的环境使用 local,
生产检索质量要求下使用 openai.
*/
package embedding
