package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Provider 网络搜索后端接口
type Provider interface {
	// Search 执行一次搜索
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
	// Name 返回后端名称
	Name() string
}

// Options 单次搜索选项
type Options struct {
	// 最大结果数, 0 表示使用后端默认值
	MaxResults int

	// 搜索主题: "news" 或 "general"
	Topic string

	// 回溯天数, 仅 news 主题有意义, 0 表示不限
	Days int

	// 限定站点, 如 "set.or.th"
	TargetSite string
}

// Result 单条搜索结果
type Result struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Content     string  `json:"content"`
	PublishedAt string  `json:"published_at,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// Config 搜索后端配置
type Config struct {
	// API 密钥（tavily 必填）
	APIKey string

	// 覆盖后端默认地址, 主要用于测试
	BaseURL string

	// 单次搜索超时
	Timeout time.Duration

	// 默认最大结果数
	MaxResults int
}

// NewProvider 按名称创建搜索后端
func NewProvider(name string, cfg Config, logger *zap.Logger) (Provider, error) {
	switch name {
	case "tavily":
		return NewTavilyProvider(cfg, logger)
	case "duckduckgo", "":
		return NewDuckDuckGoProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", name)
	}
}
