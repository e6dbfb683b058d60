package mock

import (
	"context"
	"encoding/json"
	"testing"
)

// TestFixed 固定响应模式
func TestFixed(t *testing.T) {
	c, err := New(json.RawMessage(`{"response":"# Title\nNew text"}`))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	text, err := c.Generate(context.Background(), "llama3.2", "p")
	if err != nil || text != "# Title\nNew text" {
		t.Fatalf("unexpected %q %v", text, err)
	}
	mc := c.(*Client)
	if mc.Calls != 1 || mc.LastModel != "llama3.2" || mc.LastPrompt != "p" {
		t.Fatalf("call not recorded: %+v", mc)
	}
}

// TestEcho 默认无 response 时回显
func TestEcho(t *testing.T) {
	c, _ := New(nil)
	text, err := c.Generate(context.Background(), "m", "hello")
	if err != nil || text != "hello" {
		t.Fatalf("unexpected %q %v", text, err)
	}
}

// TestError 错误模式
func TestError(t *testing.T) {
	c, _ := New(json.RawMessage(`{"response_mode":"error","error":"down"}`))
	if _, err := c.Generate(context.Background(), "m", "p"); err == nil || err.Error() != "down" {
		t.Fatalf("unexpected err %v", err)
	}
}

// TestUnknownMode 未知模式在构造期失败
func TestUnknownMode(t *testing.T) {
	if _, err := New(json.RawMessage(`{"response_mode":"line_map"}`)); err == nil {
		t.Fatalf("expect error")
	}
	if _, err := New(json.RawMessage(`{`)); err == nil {
		t.Fatalf("expect decode error")
	}
}

// TestCanceled 取消的 ctx 不计数
func TestCanceled(t *testing.T) {
	c, _ := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Generate(ctx, "m", "p"); err == nil {
		t.Fatalf("expect ctx error")
	}
	if c.(*Client).Calls != 0 {
		t.Fatalf("canceled call counted")
	}
}
