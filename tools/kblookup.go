package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/llm"
)

// KnowledgeSearcher 知识库查询后端, 由 kb 包实现
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string) ([]KnowledgeHit, error)
}

// KnowledgeHit 单条知识库命中
type KnowledgeHit struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type kbLookupArgs struct {
	Query string `json:"query"`
}

// NewKnowledgeBaseLookupTool creates the knowledge_base_lookup ToolFunc.
func NewKnowledgeBaseLookupTool(searcher KnowledgeSearcher, logger *zap.Logger) (ToolFunc, ToolMetadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var params kbLookupArgs
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid knowledge_base_lookup arguments: %w", err)
		}
		if strings.TrimSpace(params.Query) == "" {
			return nil, fmt.Errorf("query is required")
		}
		if searcher == nil {
			return nil, fmt.Errorf("knowledge base not configured")
		}

		hits, err := searcher.Search(ctx, params.Query)
		if err != nil {
			logger.Error("knowledge base lookup failed", zap.String("query", params.Query), zap.Error(err))
			return nil, fmt.Errorf("knowledge base lookup failed: %w", err)
		}

		logger.Info("knowledge base lookup completed",
			zap.String("query", params.Query),
			zap.Int("hits", len(hits)))

		return json.Marshal(map[string]any{
			"query": params.Query,
			"hits":  hits,
		})
	}

	metadata := ToolMetadata{
		Schema: llm.ToolSchema{
			Name:        "knowledge_base_lookup",
			Description: "Look up the company document knowledge base for financial statements, filings and related material. Returns the most relevant document chunks.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {
						"type": "string",
						"description": "The lookup query"
					}
				},
				"required": ["query"]
			}`),
		},
		Timeout:     15 * time.Second,
		Description: "Knowledge-base retrieval tool over the embedded document index.",
	}

	return fn, metadata
}

// RegisterKnowledgeBaseLookupTool registers the knowledge_base_lookup tool.
func RegisterKnowledgeBaseLookupTool(registry Registry, searcher KnowledgeSearcher, logger *zap.Logger) error {
	fn, metadata := NewKnowledgeBaseLookupTool(searcher, logger)
	return registry.Register("knowledge_base_lookup", fn, metadata)
}
