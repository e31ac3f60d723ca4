// =============================================================================
// 📦 Fincrew 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LLM:           DefaultLLMConfig(),
		Embedding:     DefaultEmbeddingConfig(),
		Agent:         DefaultAgentConfig(),
		Redis:         DefaultRedisConfig(),
		Database:      DefaultDatabaseConfig(),
		KnowledgeBase: DefaultKnowledgeBaseConfig(),
		WebSearch:     DefaultWebSearchConfig(),
		Log:           DefaultLogConfig(),
		Telemetry:     DefaultTelemetryConfig(),
		Metrics:       DefaultMetricsConfig(),
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		DefaultProvider: "anthropic",
		APIKey:          "",
		BaseURL:         "",
		Model:           "",
		Timeout:         2 * time.Minute,
		MaxRetries:      3,
	}
}

// DefaultEmbeddingConfig 返回默认嵌入配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:   "local",
		Model:      "",
		Dimensions: 0, // 0 时由 Provider 自身的默认维度决定
		Timeout:    30 * time.Second,
	}
}

// DefaultAgentConfig 返回默认 Agent 运行参数
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations: 10,
		Temperature:   0.7,
		MaxTokens:     4096,
		Timeout:       5 * time.Minute,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:             "localhost:6379",
		Password:         "",
		DB:               0,
		PoolSize:         10,
		MinIdleConns:     2,
		WorkingMemoryTTL: 24 * time.Hour,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Name:            "fincrew.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultKnowledgeBaseConfig 返回默认知识库配置
func DefaultKnowledgeBaseConfig() KnowledgeBaseConfig {
	return KnowledgeBaseConfig{
		Name:            "financial-advisor-kb",
		Description:     "Useful for answering questions about customer loaning and for questions about the company annual financial reports",
		DocumentDir:     "docs",
		PrefixGlob:      "",
		ChunkSize:       400,
		ChunkOverlap:    50,
		TopK:            5,
		ScoreThreshold:  0.0,
		SyncConcurrency: 4,
	}
}

// DefaultWebSearchConfig 返回默认网页搜索配置
func DefaultWebSearchConfig() WebSearchConfig {
	return WebSearchConfig{
		Provider:   "duckduckgo",
		Timeout:    15 * time.Second,
		MaxResults: 5,
		RateLimit:  1.0,
	}
}

// DefaultLogConfig 返回默认日志配置
// 日志写入 stderr, stdout 保留给任务结果输出。
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "fincrew",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "fincrew",
	}
}
