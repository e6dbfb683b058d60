package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"docsync/pkg/contract"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); err == nil {
		t.Fatalf("未知字段应报错")
	}
}

// TestFactories 遍历注册表入口。
func TestFactories(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		if _, err := Store["fs"](json.RawMessage(`{"atomic":false}`)); err != nil {
			t.Fatalf("store: %v", err)
		}
		if _, err := Store["fs"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("store 未对未知字段报错")
		}
	})
	t.Run("prompt", func(t *testing.T) {
		pb, err := PromptBuilder["docprompt"](json.RawMessage(`{}`))
		if err != nil {
			t.Fatalf("prompt: %v", err)
		}
		if p, err := pb.Update("doc", "diff"); err != nil || p == "" {
			t.Fatalf("prompt render: %q %v", p, err)
		}
		if _, err := PromptBuilder["docprompt"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("prompt 未对未知字段报错")
		}
	})
	t.Run("llm-mock", func(t *testing.T) {
		c, err := LLMClient["mock"](json.RawMessage(`{"response":"ok"}`))
		if err != nil {
			t.Fatalf("mock: %v", err)
		}
		if out, err := c.Generate(context.Background(), "m", "p"); err != nil || out != "ok" {
			t.Fatalf("mock generate: %q %v", out, err)
		}
		if _, err := LLMClient["mock"](json.RawMessage(`{"response_mode":"nope"}`)); !errors.Is(err, contract.ErrInvalidInput) {
			t.Fatalf("mock 未知模式应报错: %v", err)
		}
	})
	t.Run("llm-ollama", func(t *testing.T) {
		if _, err := LLMClient["ollama"](json.RawMessage(`{}`)); err != nil {
			t.Fatalf("ollama: %v", err)
		}
	})
	t.Run("llm-openai", func(t *testing.T) {
		if _, err := LLMClient["openai"](json.RawMessage(`{}`)); err != nil {
			t.Fatalf("openai 本地服务无需 key: %v", err)
		}
	})
	t.Run("llm-flaky", func(t *testing.T) {
		c, err := LLMClient["flaky"](nil)
		if err != nil {
			t.Fatalf("flaky: %v", err)
		}
		if _, err := c.Generate(context.Background(), "m", "p"); !errors.Is(err, contract.ErrRateLimited) {
			t.Fatalf("flaky 首次调用应失败: %v", err)
		}
	})
}
