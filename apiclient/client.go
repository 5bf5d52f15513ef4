// Package apiclient 是 REST 代理的客户端，和 SDK 直连的网关实现
// 同一个歌单来源契约，由配置二选一。
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"PlayFM/logger"
	"PlayFM/model"
)

// Client 访问音乐代理API的HTTP客户端
type Client struct {
	baseURL    string
	expiresIn  int
	httpClient *http.Client
}

// NewClient 创建客户端。代理自身对每个请求有独立的超时，
// 这里的30秒是整个HTTP往返的上限。
func NewClient(baseURL string, expiresIn int) *Client {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return &Client{
		baseURL:   baseURL,
		expiresIn: expiresIn,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// musicResponse /api/music 的响应
type musicResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Files   []model.Track `json:"files"`
	Paths   []string      `json:"paths"`
	Error   string        `json:"error,omitempty"`
}

// urlResponse /api/music/url 的响应
type urlResponse struct {
	Success   bool   `json:"success"`
	URL       string `json:"url"`
	Path      string `json:"path"`
	ExpiresIn int    `json:"expiresIn"`
	Error     string `json:"error,omitempty"`
}

// healthResponse /api/health 的响应
type healthResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// LoadAudioFiles 通过代理加载一个前缀下的音频文件，实现 playlist.TrackSource
func (c *Client) LoadAudioFiles(ctx context.Context, prefix string) ([]model.Track, error) {
	q := url.Values{}
	q.Set("paths", prefix)
	q.Set("includeUrl", "true")
	q.Set("expiresIn", strconv.Itoa(c.expiresIn))

	var resp musicResponse
	if err := c.getJSON(ctx, "/api/music?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("music API returned failure: %s", resp.Error)
	}

	logger.Info("✅ 通过代理加载完成",
		logger.String("path", prefix),
		logger.Int("files", resp.Count),
	)
	return resp.Files, nil
}

// ResolveURL 为单个对象向代理请求签名URL
func (c *Client) ResolveURL(ctx context.Context, fullPath string) (string, error) {
	q := url.Values{}
	q.Set("expiresIn", strconv.Itoa(c.expiresIn))

	var resp urlResponse
	if err := c.getJSON(ctx, "/api/music/url/"+fullPath+"?"+q.Encode(), &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("music API returned failure: %s", resp.Error)
	}
	return resp.URL, nil
}

// Health 检查代理是否在线
func (c *Client) Health(ctx context.Context) error {
	var resp healthResponse
	if err := c.getJSON(ctx, "/api/health", &resp); err != nil {
		return err
	}
	if !resp.Success || resp.Status != "ok" {
		return fmt.Errorf("music API unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// 响应体里通常有结构化的error字段，先尝试解出来
		if err := json.Unmarshal(body, out); err == nil {
			return fmt.Errorf("music API error (%d)", resp.StatusCode)
		}
		return fmt.Errorf("music API error (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
