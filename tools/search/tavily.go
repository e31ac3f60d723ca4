package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/internal/tlsutil"
)

const (
	tavilyDefaultBaseURL = "https://api.tavily.com"
	tavilyDefaultTimeout = 15 * time.Second
	tavilyMaxResults     = 5
)

// TavilyProvider 调用 Tavily 搜索 API
type TavilyProvider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

var _ Provider = (*TavilyProvider)(nil)

// NewTavilyProvider 创建 Tavily 搜索后端
func NewTavilyProvider(cfg Config, logger *zap.Logger) (*TavilyProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tavily api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = tavilyDefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = tavilyDefaultTimeout
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = tavilyMaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TavilyProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "search.tavily")),
	}, nil
}

func (p *TavilyProvider) Name() string { return "tavily" }

// tavilyRequest Tavily /search 请求体
type tavilyRequest struct {
	Query          string   `json:"query"`
	Topic          string   `json:"topic,omitempty"`
	Days           int      `json:"days,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

type tavilyResponse struct {
	Query   string         `json:"query"`
	Results []tavilyResult `json:"results"`
}

// Search 执行 Tavily 搜索
func (p *TavilyProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	body := tavilyRequest{
		Query:      query,
		Topic:      opts.Topic,
		MaxResults: p.cfg.MaxResults,
	}
	if opts.MaxResults > 0 {
		body.MaxResults = opts.MaxResults
	}
	// days 仅对 news 主题有效
	if opts.Topic == "news" && opts.Days > 0 {
		body.Days = opts.Days
	}
	if opts.TargetSite != "" {
		body.IncludeDomains = []string{opts.TargetSite}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, string(msg))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Result{
			Title:       r.Title,
			URL:         r.URL,
			Content:     r.Content,
			PublishedAt: r.PublishedDate,
			Score:       r.Score,
		})
	}

	p.logger.Debug("tavily search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))

	return results, nil
}
