package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/llm"
	"github.com/waritsan/fincrew/tools/search"
)

// WebSearchToolConfig configures the web search tool.
type WebSearchToolConfig struct {
	Provider   search.Provider  // Search backend
	MaxResults int              // Default maximum results
	Timeout    time.Duration    // Per-search timeout
	RateLimit  *RateLimitConfig // Rate limiting
}

// DefaultWebSearchToolConfig returns sensible defaults.
func DefaultWebSearchToolConfig() WebSearchToolConfig {
	return WebSearchToolConfig{
		MaxResults: 5,
		Timeout:    15 * time.Second,
		RateLimit: &RateLimitConfig{
			MaxCalls: 30,
			Window:   time.Minute,
		},
	}
}

// webSearchArgs 模型看到的参数: 全部为字符串, days 在这里转换
type webSearchArgs struct {
	SearchQuery   string `json:"search_query"`
	TargetWebsite string `json:"target_website,omitempty"`
	Topic         string `json:"topic,omitempty"`
	Days          string `json:"days,omitempty"`
}

type webSearchResponse struct {
	Query      string          `json:"query"`
	Results    []search.Result `json:"results"`
	TotalCount int             `json:"total_count"`
}

// NewWebSearchTool creates the web_search ToolFunc with the fixed
// financial-research descriptor.
func NewWebSearchTool(config WebSearchToolConfig, logger *zap.Logger) (ToolFunc, ToolMetadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var params webSearchArgs
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid web_search arguments: %w", err)
		}

		if strings.TrimSpace(params.SearchQuery) == "" {
			return nil, fmt.Errorf("search_query is required")
		}
		if config.Provider == nil {
			return nil, fmt.Errorf("web search provider not configured")
		}
		if params.Topic != "" && params.Topic != "news" && params.Topic != "general" {
			return nil, fmt.Errorf("topic must be 'news' or 'general', got %q", params.Topic)
		}

		opts := search.Options{
			MaxResults: config.MaxResults,
			Topic:      params.Topic,
			TargetSite: params.TargetWebsite,
		}
		if params.Days != "" {
			days, err := strconv.Atoi(strings.TrimSpace(params.Days))
			if err != nil || days < 0 {
				return nil, fmt.Errorf("days must be a non-negative integer, got %q", params.Days)
			}
			opts.Days = days
		}

		start := time.Now()
		logger.Info("executing web search",
			zap.String("query", params.SearchQuery),
			zap.String("topic", params.Topic))

		results, err := config.Provider.Search(ctx, params.SearchQuery, opts)
		if err != nil {
			logger.Error("web search failed", zap.String("query", params.SearchQuery), zap.Error(err))
			return nil, fmt.Errorf("web search failed: %w", err)
		}

		logger.Info("web search completed",
			zap.String("query", params.SearchQuery),
			zap.Int("results", len(results)),
			zap.Duration("duration", time.Since(start)))

		return json.Marshal(webSearchResponse{
			Query:      params.SearchQuery,
			Results:    results,
			TotalCount: len(results),
		})
	}

	metadata := ToolMetadata{
		Schema: llm.ToolSchema{
			Name:        "web_search",
			Description: "Search the web for current information such as stock prices, news, company filings and market data. Returns a list of relevant results with titles, URLs and content snippets.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"search_query": {
						"type": "string",
						"description": "The search query keywords"
					},
					"target_website": {
						"type": "string",
						"description": "Restrict the search to this website, e.g. 'set.or.th'"
					},
					"topic": {
						"type": "string",
						"enum": ["news", "general"],
						"description": "The topic of the search, 'news' or 'general'"
					},
					"days": {
						"type": "string",
						"description": "Number of days back from today to search, e.g. '7'"
					}
				},
				"required": ["search_query"]
			}`),
		},
		Timeout:     config.Timeout,
		RateLimit:   config.RateLimit,
		Description: "Web search tool that queries search engines and returns relevant results using configurable search providers.",
	}

	return fn, metadata
}

// RegisterWebSearchTool is a convenience function that creates and registers the web search tool.
func RegisterWebSearchTool(registry Registry, config WebSearchToolConfig, logger *zap.Logger) error {
	fn, metadata := NewWebSearchTool(config, logger)
	return registry.Register("web_search", fn, metadata)
}
