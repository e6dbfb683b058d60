package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	DocPath string `json:"doc_path"`
	DocsDir string `json:"docs_dir"`
	Model   string `json:"model"`
	// MaxPromptTokens: 提示词估算超过该值时告警；0 表示不检查。
	MaxPromptTokens int `json:"max_prompt_tokens"`
	// RejectBlankResponse: 为 true 时空白模型响应视为失败而不写回；未设置等同 false。
	RejectBlankResponse *bool   `json:"reject_blank_response,omitempty"`
	Logging             Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// LLM Provider 选择与定义。
	LLM      string              `json:"llm"`
	Provider map[string]Provider `json:"provider"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与可选目录；目录为空时写 stderr。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Store  string `json:"store"`
	Prompt string `json:"prompt"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Store  json.RawMessage `json:"store"`
	Prompt json.RawMessage `json:"prompt"`
}

// Provider: 命名 provider 定义（client 实现 + options）。
type Provider struct {
	Client  string          `json:"client"`
	Options json.RawMessage `json:"options"`
}
