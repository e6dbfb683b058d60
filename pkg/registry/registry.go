package registry

import (
	"bytes"
	"encoding/json"

	"docsync/pkg/contract"
	flaky "docsync/plugins/llmclient/flaky"
	mock "docsync/plugins/llmclient/mock"
	olm "docsync/plugins/llmclient/ollama"
	oai "docsync/plugins/llmclient/openai"
	dpt "docsync/plugins/prompt/docprompt"
	sfs "docsync/plugins/store/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewStore 工厂签名：接收原样 JSON Options。
type NewStore func(raw json.RawMessage) (contract.DocumentStore, error)

// NewPromptBuilder 工厂签名：接收原样 JSON Options。
type NewPromptBuilder func(raw json.RawMessage) (contract.PromptBuilder, error)

// NewLLMClient 工厂签名：接收原样 JSON Options。
type NewLLMClient func(raw json.RawMessage) (contract.ModelClient, error)

// Store 工厂注册表（显式、零反射）。
var Store = map[string]NewStore{
	// fs: 本地文件系统（原子替换 + 写前校验，均可配置）
	"fs": func(raw json.RawMessage) (contract.DocumentStore, error) {
		var opts sfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return sfs.New(&opts)
	},
}

// PromptBuilder 工厂注册表。
var PromptBuilder = map[string]NewPromptBuilder{
	// docprompt: 文档更新与受影响文档分析（版本化模板）
	"docprompt": func(raw json.RawMessage) (contract.PromptBuilder, error) {
		var opts dpt.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return dpt.New(&opts)
	},
}

// LLMClient 工厂注册表。
var LLMClient = map[string]NewLLMClient{
	"ollama": func(raw json.RawMessage) (contract.ModelClient, error) { return olm.New(raw) },
	"openai": func(raw json.RawMessage) (contract.ModelClient, error) { return oai.New(raw) },
	"mock":   func(raw json.RawMessage) (contract.ModelClient, error) { return mock.New(raw) },
	"flaky":  func(raw json.RawMessage) (contract.ModelClient, error) { return flaky.New(raw) },
}
