package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/researchflow/internal/tlsutil"
)

// DefaultFirecrawlBaseURL Firecrawl 云服务地址
const DefaultFirecrawlBaseURL = "https://api.firecrawl.dev"

// ErrMissingAPIKey Firecrawl 需要 API Key
var ErrMissingAPIKey = errors.New("firecrawl: api key is required")

// FirecrawlConfig Firecrawl 客户端配置
type FirecrawlConfig struct {
	APIKey  string
	BaseURL string
	// HTTP 层超时，应大于网关超时，保证被放弃的调用最终也会结束
	Timeout time.Duration
}

// FirecrawlClient 调用 Firecrawl 的 /v1/search 与 /v1/scrape
type FirecrawlClient struct {
	cfg    FirecrawlConfig
	client *http.Client
}

// NewFirecrawlClient 创建客户端，APIKey 为空时返回 ErrMissingAPIKey。
func NewFirecrawlClient(cfg FirecrawlConfig) (*FirecrawlClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFirecrawlBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * DefaultTimeout
	}
	return &FirecrawlClient{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
	}, nil
}

type firecrawlScrapeOptions struct {
	Formats []string `json:"formats"`
}

type firecrawlSearchRequest struct {
	Query         string                 `json:"query"`
	Limit         int                    `json:"limit"`
	ScrapeOptions firecrawlScrapeOptions `json:"scrapeOptions"`
}

type firecrawlSearchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Markdown    string `json:"markdown"`
	} `json:"data"`
}

type firecrawlScrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type firecrawlScrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Search 搜索并顺带抓取每条结果的 markdown
func (c *FirecrawlClient) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	var out firecrawlSearchResponse
	err := c.post(ctx, "/v1/search", firecrawlSearchRequest{
		Query:         query,
		Limit:         limit,
		ScrapeOptions: firecrawlScrapeOptions{Formats: []string{"markdown"}},
	}, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("firecrawl search failed: %s", out.Error)
	}

	results := make([]Result, 0, len(out.Data))
	for _, d := range out.Data {
		results = append(results, Result{
			Title:       d.Title,
			URL:         d.URL,
			Description: d.Description,
			Markdown:    d.Markdown,
		})
	}
	return results, nil
}

// Fetch 抓取单个页面的 markdown
func (c *FirecrawlClient) Fetch(ctx context.Context, url string) (string, error) {
	var out firecrawlScrapeResponse
	if err := c.post(ctx, "/v1/scrape", firecrawlScrapeRequest{URL: url, Formats: []string{"markdown"}}, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("firecrawl scrape failed: %s", out.Error)
	}
	return out.Data.Markdown, nil
}

func (c *FirecrawlClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("firecrawl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("firecrawl %s: HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode firecrawl response: %w", err)
	}
	return nil
}
