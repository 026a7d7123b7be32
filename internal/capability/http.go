package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// httpClient 能力服务的通用HTTP客户端；
// 把服务商的失败翻译为统一的错误分类后再返回
type httpClient struct {
	baseURL string
	stage   string
	client  *http.Client
}

func newHTTPClient(baseURL, stage string, timeout time.Duration) *httpClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		stage:   stage,
		client:  &http.Client{Timeout: timeout},
	}
}

// postJSON 发送请求并解析响应；超时和5xx归为临时故障，4xx归为校验失败
func (c *httpClient) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s marshal request: %w", c.stage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s build request: %w", c.stage, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransientProviderError{Stage: c.stage, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return &TransientProviderError{Stage: c.stage, Err: fmt.Errorf("provider returned %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return &ValidationError{Field: c.stage, Reason: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientProviderError{Stage: c.stage, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// getJSON 发送GET请求并解析响应，错误分类与postJSON一致
func (c *httpClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%s build request: %w", c.stage, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransientProviderError{Stage: c.stage, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return &TransientProviderError{Stage: c.stage, Err: fmt.Errorf("provider returned %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return &ValidationError{Field: c.stage, Reason: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientProviderError{Stage: c.stage, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
