package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"docsync/pkg/contract"
)

// DefaultBaseURL 为本地 Ollama 服务的默认地址。
const DefaultBaseURL = "http://localhost:11434"

// Options: 最小必需配置。
type Options struct {
	BaseURL        string            `json:"base_url"`        // 为空时读取 $OLLAMA_HOST，再退回 DefaultBaseURL
	TimeoutSeconds int               `json:"timeout_seconds"` // client 级超时（秒）；<=0 使用 300
	KeepAlive      string            `json:"keep_alive"`      // 例如 "5m"；为空不发送
	Temperature    *float64          `json:"temperature,omitempty"`
	NumCtx         int               `json:"num_ctx,omitempty"` // 上下文窗口；0 使用模型默认
	ExtraHeaders   map[string]string `json:"extra_headers"`
}

func (o *Options) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = os.Getenv("OLLAMA_HOST")
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(o.BaseURL, "http://") && !strings.HasPrefix(o.BaseURL, "https://") {
		// OLLAMA_HOST 常见写法为 host:port
		o.BaseURL = "http://" + o.BaseURL
	}
	if o.TimeoutSeconds <= 0 {
		// 本地大模型首次加载较慢
		o.TimeoutSeconds = 300
	}
}

// Client 通过 /api/generate（非流式）调用 Ollama。
type Client struct {
	url       string
	keepAlive string
	options   map[string]any
	extraH    map[string]string
	do        func(*http.Request) (*http.Response, error)
}

// New 从原样 JSON 选项构造客户端。
func New(raw json.RawMessage) (contract.ModelClient, error) {
	var opts Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, fmt.Errorf("ollama options: %w", err)
		}
	}
	opts.defaults()
	hc := &http.Client{Timeout: time.Duration(opts.TimeoutSeconds) * time.Second}
	var mo map[string]any
	if opts.Temperature != nil || opts.NumCtx > 0 {
		mo = map[string]any{}
		if opts.Temperature != nil {
			mo["temperature"] = *opts.Temperature
		}
		if opts.NumCtx > 0 {
			mo["num_ctx"] = opts.NumCtx
		}
	}
	return &Client{
		url:       strings.TrimRight(opts.BaseURL, "/") + "/api/generate",
		keepAlive: opts.KeepAlive,
		options:   mo,
		extraH:    opts.ExtraHeaders,
		do:        hc.Do,
	}, nil
}

type generateReq struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type generateResp struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// upstreamError 实现 net.Error，用于将 HTTP 上游 5xx/408 映射为网络类错误，便于分类。
type upstreamError struct {
	status int
	msg    string
}

func (e upstreamError) Error() string           { return fmt.Sprintf("ollama upstream %d: %s", e.status, e.msg) }
func (e upstreamError) Timeout() bool           { return e.status == http.StatusRequestTimeout }
func (e upstreamError) Temporary() bool         { return e.status/100 == 5 }
func (e upstreamError) UpstreamStatus() int     { return e.status }
func (e upstreamError) UpstreamMessage() string { return e.msg }

// Generate: 单次调用，同步返回模型完整输出。
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(&generateReq{
		Model:     model,
		Prompt:    prompt,
		Stream:    false,
		KeepAlive: c.keepAlive,
		Options:   c.options,
	})
	if err != nil {
		return "", fmt.Errorf("encode: %v: %w", err, contract.ErrInvalidInput)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %v: %w", err, contract.ErrInvalidInput)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.extraH {
		if k == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := c.do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
		}
		return "", fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", contract.ErrRateLimited
	}
	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := upstreamMessage(slurp)
		if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode/100 == 5 {
			return "", upstreamError{status: resp.StatusCode, msg: msg}
		}
		// 404 通常为模型未拉取
		return "", fmt.Errorf("ollama upstream %d: %s: %w", resp.StatusCode, msg, contract.ErrInvalidInput)
	}
	var out generateResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode: %w", contract.ErrResponseInvalid)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s: %w", out.Error, contract.ErrResponseInvalid)
	}
	return out.Response, nil
}

// upstreamMessage 提取 {"error": "..."} 中的消息；否则返回截断原文。
func upstreamMessage(b []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(b))
}

var _ contract.ModelClient = (*Client)(nil)
