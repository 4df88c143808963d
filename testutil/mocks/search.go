package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/researchflow/gateway"
)

// MockSearchClient 是 gateway.Client 的模拟实现。
// 默认不返回任何结果，页面按 URL 配置。
type MockSearchClient struct {
	mu sync.Mutex

	results   []gateway.Result
	pages     map[string]string
	searchErr error
	fetchErr  error

	searchCalls []string
	fetchCalls  []string
}

// NewMockSearchClient 创建空的 MockSearchClient
func NewMockSearchClient() *MockSearchClient {
	return &MockSearchClient{pages: map[string]string{}}
}

// WithResults 设置搜索结果
func (m *MockSearchClient) WithResults(results ...gateway.Result) *MockSearchClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
	return m
}

// WithPage 设置某个 URL 的页面内容
func (m *MockSearchClient) WithPage(url, content string) *MockSearchClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[url] = content
	return m
}

// WithSearchError 设置搜索错误
func (m *MockSearchClient) WithSearchError(err error) *MockSearchClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchErr = err
	return m
}

// WithFetchError 设置抓取错误
func (m *MockSearchClient) WithFetchError(err error) *MockSearchClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
	return m
}

// Search 实现 gateway.Client
func (m *MockSearchClient) Search(ctx context.Context, query string, limit int) ([]gateway.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls = append(m.searchCalls, query)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	out := m.results
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]gateway.Result(nil), out...), nil
}

// Fetch 实现 gateway.Client
func (m *MockSearchClient) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls = append(m.fetchCalls, url)
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	return m.pages[url], nil
}

// SearchCalls 返回所有搜索查询
func (m *MockSearchClient) SearchCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searchCalls...)
}

// FetchCalls 返回所有抓取的 URL
func (m *MockSearchClient) FetchCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetchCalls...)
}
