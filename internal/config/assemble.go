package config

import (
	"errors"
	"fmt"
	"strings"

	"docsync/internal/diag"
	"docsync/internal/updater"
	"docsync/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Model) == "" {
		return errors.New("config: model not set")
	}
	if cfg.MaxPromptTokens < 0 {
		return errors.New("config: max_prompt_tokens must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", cfg.Logging.Level)
	}
	if cfg.LLM == "" {
		return errors.New("config: llm not set")
	}
	prov, ok := cfg.Provider[cfg.LLM]
	if !ok {
		return fmt.Errorf("config: provider %q not found", cfg.LLM)
	}
	if prov.Client == "" {
		return fmt.Errorf("config: provider %q missing client", cfg.LLM)
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	if name := effName(cfg.Components.Store, Defaults().Components.Store); registry.Store[name] == nil {
		return fmt.Errorf("config: store %q not registered", name)
	}
	if name := effName(cfg.Components.Prompt, Defaults().Components.Prompt); registry.PromptBuilder[name] == nil {
		return fmt.Errorf("config: prompt %q not registered", name)
	}
	if registry.LLMClient[prov.Client] == nil {
		return fmt.Errorf("config: llm client %q not registered", prov.Client)
	}
	return nil
}

// Assemble 构造 updater 的 Components 与 Settings。
// 严格 Options 解析在 registry （工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (updater.Components, updater.Settings, error) {
	if err := Validate(cfg); err != nil {
		return updater.Components{}, updater.Settings{}, err
	}

	d := Defaults()
	sn := effName(cfg.Components.Store, d.Components.Store)
	pn := effName(cfg.Components.Prompt, d.Components.Prompt)

	st, err := registry.Store[sn](cfg.Options.Store)
	if err != nil {
		return updater.Components{}, updater.Settings{}, fmt.Errorf("store %s: %w", sn, err)
	}
	pb, err := registry.PromptBuilder[pn](cfg.Options.Prompt)
	if err != nil {
		return updater.Components{}, updater.Settings{}, fmt.Errorf("prompt %s: %w", pn, err)
	}

	// LLM 客户端
	prov := cfg.Provider[cfg.LLM]
	llm, err := registry.LLMClient[prov.Client](prov.Options)
	if err != nil {
		return updater.Components{}, updater.Settings{}, fmt.Errorf("provider %s: %w", cfg.LLM, err)
	}

	comp := updater.Components{Store: st, Prompts: pb, Model: llm}
	set := updater.Settings{
		Provider:        cfg.LLM,
		Model:           strings.TrimSpace(cfg.Model),
		MaxPromptTokens: cfg.MaxPromptTokens,
		// BytesPerToken: 由估算器默认 4；此处保持 0 使用默认。
		BytesPerToken:       0,
		RejectBlankResponse: cfg.RejectBlankResponse != nil && *cfg.RejectBlankResponse,
	}
	return comp, set, nil
}

// Summary 返回有效配置的非敏感摘要，用于 debug 日志。
func Summary(cfg Config) map[string]string {
	kv := map[string]string{
		"doc_path":  cfg.DocPath,
		"docs_dir":  cfg.DocsDir,
		"model":     cfg.Model,
		"llm":       cfg.LLM,
		"store":     effName(cfg.Components.Store, Defaults().Components.Store),
		"prompt":    effName(cfg.Components.Prompt, Defaults().Components.Prompt),
		"log_level": diag.ParseLevel(cfg.Logging.Level).String(),
	}
	if p, ok := cfg.Provider[cfg.LLM]; ok {
		kv["provider_client"] = p.Client
	}
	return kv
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
