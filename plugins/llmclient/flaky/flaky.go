package flaky

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"docsync/pkg/contract"
)

// Options 定义可选项。
type Options struct {
	// Response: 失败期过后返回的文本；为空时回显提示词。
	Response string `json:"response"`
	// FailCalls: 前若干次调用失败（默认 1）。
	FailCalls int `json:"fail_calls"`
	// LogPath: 调试用日志文件，记录每次调用结果（可选）。
	LogPath string `json:"log_path,omitempty"`
}

// Client 是带状态的 ModelClient：
// 前 FailCalls 次 Generate 返回 ErrRateLimited，之后成功。
// 用于验证调用方不做重试。
type Client struct {
	resp    string
	fail    int32
	logPath string
	count   atomic.Int32
}

// New 构造 Client。
func New(raw json.RawMessage) (contract.ModelClient, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, err
		}
	}
	if o.FailCalls <= 0 {
		o.FailCalls = 1
	}
	return &Client{resp: o.Response, fail: int32(o.FailCalls), logPath: o.LogPath}, nil
}

// Count 返回已发生的调用次数。
func (c *Client) Count() int { return int(c.count.Load()) }

func (c *Client) log(s string) {
	if c.logPath == "" {
		return
	}
	// 追加写入，忽略错误。
	_ = appendFile(c.logPath, s+"\n")
}

// appendFile 以追加方式写入。
func appendFile(path, s string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(s)
	return err
}

// Generate 实现 contract.ModelClient。
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	n := c.count.Add(1)
	if n <= c.fail {
		c.log("rate_limited")
		return "", fmt.Errorf("flaky call %d: %w", n, contract.ErrRateLimited)
	}
	c.log("ok")
	if c.resp == "" {
		return prompt, nil
	}
	return c.resp, nil
}

var _ contract.ModelClient = (*Client)(nil)
