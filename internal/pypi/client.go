package pypi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/any-hub/pypi-stats/internal/version"
)

// DefaultBaseURL 是官方索引的 JSON API 根地址。
const DefaultBaseURL = "https://pypi.python.org/pypi"

// maxBodyBytes 限制单次读取的正文大小，防止异常上游撑爆内存。
const maxBodyBytes = 64 << 20

// Client 负责构造 JSON URL 并执行一次 GET，不做重试。
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient 使用共享 http.Client 构建客户端，baseURL 为空时回退到 DefaultBaseURL。
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// JSONURL 返回包对应的 JSON 地址，例如 https://pypi.python.org/pypi/django-cms/json。
func (c *Client) JSONURL(packageName string) string {
	return fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(packageName))
}

// Fetch 请求包的 JSON 正文并原样返回状态码；非 200 时 body 为 nil。
func (c *Client) Fetch(ctx context.Context, packageName string) ([]byte, int, error) {
	if strings.TrimSpace(packageName) == "" {
		return nil, 0, errors.New("package name required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.JSONURL(packageName), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", packageName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body for %s: %w", packageName, err)
	}
	return body, resp.StatusCode, nil
}
