package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/waritsan/fincrew/internal/tlsutil"
)

const (
	ddgDefaultBaseURL = "https://html.duckduckgo.com"
	ddgDefaultTimeout = 15 * time.Second
	ddgMaxResults     = 5
	ddgUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// DuckDuckGoProvider 抓取 DuckDuckGo HTML 版搜索结果, 不需要 API 密钥
type DuckDuckGoProvider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

var _ Provider = (*DuckDuckGoProvider)(nil)

// NewDuckDuckGoProvider 创建 DuckDuckGo 搜索后端
func NewDuckDuckGoProvider(cfg Config, logger *zap.Logger) *DuckDuckGoProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = ddgDefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = ddgDefaultTimeout
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = ddgMaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuckDuckGoProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "search.duckduckgo")),
	}
}

func (p *DuckDuckGoProvider) Name() string { return "duckduckgo" }

// Search 抓取并解析搜索结果页
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	q := query
	if opts.TargetSite != "" {
		q = fmt.Sprintf("%s site:%s", q, opts.TargetSite)
	}

	params := url.Values{}
	params.Set("q", q)
	if df := ddgTimeFilter(opts.Days); df != "" {
		params.Set("df", df)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/html/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create duckduckgo request: %w", err)
	}
	req.Header.Set("User-Agent", ddgUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo response: %w", err)
	}

	maxResults := p.cfg.MaxResults
	if opts.MaxResults > 0 {
		maxResults = opts.MaxResults
	}

	results := make([]Result, 0, maxResults)
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a")
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())

		target := resolveDDGRedirect(href)
		if title == "" || target == "" {
			return true
		}

		results = append(results, Result{
			Title:   title,
			URL:     target,
			Content: snippet,
		})
		return len(results) < maxResults
	})

	p.logger.Debug("duckduckgo search completed",
		zap.String("query", q),
		zap.Int("results", len(results)))

	return results, nil
}

// resolveDDGRedirect 还原结果页的跳转链接 (//duckduckgo.com/l/?uddg=<编码后的真实地址>)
func resolveDDGRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// ddgTimeFilter 将回溯天数映射为 df 参数
func ddgTimeFilter(days int) string {
	switch {
	case days <= 0:
		return ""
	case days <= 1:
		return "d"
	case days <= 7:
		return "w"
	case days <= 31:
		return "m"
	default:
		return "y"
	}
}
