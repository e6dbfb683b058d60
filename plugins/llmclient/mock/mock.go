package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"docsync/pkg/contract"
)

// Options: 离线调试配置（可选）。
type Options struct {
	// Response: fixed 模式下返回的文本。
	Response string `json:"response"`
	// ResponseMode: 响应模式。
	//  - "fixed": 原样返回 Response（未设置 Response 时退化为 echo）。
	//  - "echo": 原样回显提示词。
	//  - "error": 总是失败，错误消息为 Error（默认 "mock failure"）。
	ResponseMode string `json:"response_mode,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Client 为无网络的 ModelClient；记录最后一次调用，便于测试断言。
// 并发安全；读取记录字段前应等待调用返回。
type Client struct {
	mode string
	resp string
	err  string

	mu         sync.Mutex
	Calls      int
	LastModel  string
	LastPrompt string
}

func New(raw json.RawMessage) (contract.ModelClient, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("mock options: %w", err)
		}
	}
	mode := strings.TrimSpace(o.ResponseMode)
	if mode == "" {
		mode = "fixed"
	}
	if mode == "fixed" && o.Response == "" {
		mode = "echo"
	}
	switch mode {
	case "fixed", "echo", "error":
	default:
		return nil, fmt.Errorf("mock: %w: unknown response_mode %q", contract.ErrInvalidInput, mode)
	}
	if o.Error == "" {
		o.Error = "mock failure"
	}
	return &Client{mode: mode, resp: o.Response, err: o.Error}, nil
}

func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	c.mu.Lock()
	c.Calls++
	c.LastModel = model
	c.LastPrompt = prompt
	c.mu.Unlock()
	switch c.mode {
	case "error":
		return "", errors.New(c.err)
	case "echo":
		return prompt, nil
	default:
		return c.resp, nil
	}
}

var _ contract.ModelClient = (*Client)(nil)
