package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 默认使用本地 Ollama；openai 兼容服务与 mock 作为备选 provider；
// - 组件名采用仓库内置实现；
// - 选项给出全部键与安全中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		DocPath:         d.DocPath,
		DocsDir:         d.DocsDir,
		Model:           d.Model,
		MaxPromptTokens: 8192,
		Logging:         Logging{Level: "warn", Dir: ""},
		Components:      d.Components,
		LLM:             "ollama",
		Provider: map[string]Provider{
			"ollama": {
				Client: "ollama",
				Options: json.RawMessage(`{
  "base_url": "",
  "timeout_seconds": 300,
  "keep_alive": "",
  "num_ctx": 0,
  "extra_headers": {}
}`),
			},
			"openai": {
				Client: "openai",
				// 兼容 llama.cpp server / LM Studio / vLLM / Ollama /v1
				Options: json.RawMessage(`{
  "base_url": "http://localhost:11434/v1",
  "api_key_env": "OPENAI_API_KEY",
  "timeout_seconds": 300,
  "endpoint_path": "",
  "disable_default_auth": false,
  "extra_headers": {}
}`),
			},
			"mock": {
				Client:  "mock",
				Options: json.RawMessage(`{"response": "", "response_mode": "echo"}`),
			},
		},
	}
	// 默认原样写回模型输出（包括空白响应）
	reject := false
	cfg.RejectBlankResponse = &reject
	cfg.Options.Store = json.RawMessage(`{
  "atomic": true,
  "check_unchanged": true,
  "perm_file": 0,
  "buf_size": 65536
}`)
	cfg.Options.Prompt = json.RawMessage(`{
  "inline_update_template": "",
  "update_template_path": "",
  "inline_affected_template": "",
  "affected_template_path": ""
}`)
	return cfg
}

// EncodeYAML 将 Config 编码为块风格 YAML，字段顺序与 JSON 标签一致。
func EncodeYAML(cfg Config) ([]byte, error) {
	js, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	// JSON 是 YAML 的子集：解析为节点树以保留键顺序，再清除流式/引号风格。
	var doc yaml.Node
	if err := yaml.Unmarshal(js, &doc); err != nil {
		return nil, err
	}
	blockStyle(&doc)
	doc.HeadComment = "docsync 配置（由 init-config 生成）\n优先级：CLI > ENV(DOCSYNC_*) > 本文件 > 内置默认"
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// EnvTemplate 返回 .env 模板内容：列出支持的覆盖项与常见密钥，值均为空。
func EnvTemplate() string {
	var b strings.Builder
	b.WriteString("# docsync .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置；已存在的环境变量不会被覆盖。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	fmt.Fprintf(&b, "%sCONFIG_FILE=\n", EnvPrefix)
	fmt.Fprintf(&b, "%sCONFIG_JSON=\n\n", EnvPrefix)

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{"DOC_PATH", "DOCS_DIR", "MODEL", "LLM", "MAX_PROMPT_TOKENS", "REJECT_BLANK_RESPONSE", "LOG_LEVEL", "LOG_DIR"} {
		fmt.Fprintf(&b, "%s%s=\n", EnvPrefix, k)
	}
	b.WriteString("\n# 组件选择\n")
	fmt.Fprintf(&b, "%sCOMPONENTS_STORE=\n", EnvPrefix)
	fmt.Fprintf(&b, "%sCOMPONENTS_PROMPT=\n\n", EnvPrefix)

	for _, name := range []string{"ollama", "openai"} {
		fmt.Fprintf(&b, "# Provider 覆盖（%s）\n", name)
		fmt.Fprintf(&b, "%sPROVIDER__%s__CLIENT=\n", EnvPrefix, name)
		fmt.Fprintf(&b, "%sPROVIDER__%s__OPTIONS_JSON=\n\n", EnvPrefix, name)
	}

	b.WriteString("# 模型服务（由 provider 客户端直接读取，不经 DOCSYNC_ 前缀）\n")
	b.WriteString("OLLAMA_HOST=\n")
	b.WriteString("OPENAI_API_KEY=\n")
	return b.String()
}
