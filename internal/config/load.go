package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix 为所有覆盖项环境变量的前缀。
const EnvPrefix = "DOCSYNC_"

// DefaultFiles: 未显式指定来源时，按顺序探测工作目录下的这些文件。
var DefaultFiles = []string{"docsync.yaml", "docsync.yml", "docsync.json"}

// Defaults 返回带有安全默认值的 Config 雏形。
// 无需任何配置文件即可对本地 Ollama 运行。
func Defaults() Config {
	return Config{
		DocPath: "README.md",
		DocsDir: "docs",
		Model:   "llama3.2",
		LLM:     "ollama",
		Logging: Logging{Level: "warn"},
		Components: Components{
			Store:  "fs",
			Prompt: "docprompt",
		},
		Provider: map[string]Provider{
			"ollama": {Client: "ollama"},
			"openai": {Client: "openai"},
			"mock":   {Client: "mock"},
		},
	}
}

// Locate 决定配置来源：显式路径 > DOCSYNC_CONFIG_FILE > DOCSYNC_CONFIG_JSON > 默认文件。
// 返回 path 或 raw（JSON）二者之一；均为空表示无配置来源。
func Locate(explicit string, getenv func(string) string) (path string, raw []byte) {
	if s := strings.TrimSpace(explicit); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(getenv(EnvPrefix + "CONFIG_FILE")); s != "" {
		return s, nil
	}
	if s := getenv(EnvPrefix + "CONFIG_JSON"); strings.TrimSpace(s) != "" {
		return "", []byte(s)
	}
	for _, name := range DefaultFiles {
		if st, err := os.Stat(name); err == nil && st.Mode().IsRegular() {
			return name, nil
		}
	}
	return "", nil
}

// Load 从文件路径或原始 JSON 解析 Config；按扩展名识别 YAML。
func Load(path string, raw []byte) (Config, error) {
	if len(raw) == 0 && isYAML(path) {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		return LoadYAML(b)
	}
	return LoadJSON(path, raw)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadYAML 解析 YAML 配置：先解码为通用树，再经 JSON 严格解码，
// 使两种格式共享同一套字段名与未知字段校验；provider/options 子树原样保留为 JSON。
func LoadYAML(b []byte) (Config, error) {
	var tree any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	if tree == nil {
		return Config{}, nil
	}
	norm, err := normalize(tree)
	if err != nil {
		return Config{}, err
	}
	js, err := json.Marshal(norm)
	if err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	return LoadJSON("", js)
}

// normalize 将 YAML 通用值转为可 JSON 编码的形式（键统一为字符串）。
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			nv, err := normalize(vv)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			nv, err := normalize(vv)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			nv, err := normalize(vv)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.DocPath); s != "" {
		out.DocPath = s
	}
	if s := strings.TrimSpace(over.DocsDir); s != "" {
		out.DocsDir = s
	}
	if s := strings.TrimSpace(over.Model); s != "" {
		out.Model = s
	}
	if over.MaxPromptTokens != 0 {
		out.MaxPromptTokens = over.MaxPromptTokens
	}
	if over.RejectBlankResponse != nil {
		v := *over.RejectBlankResponse
		out.RejectBlankResponse = &v
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}

	// 组件名（空不覆盖）
	if over.Components.Store != "" {
		out.Components.Store = over.Components.Store
	}
	if over.Components.Prompt != "" {
		out.Components.Prompt = over.Components.Prompt
	}

	// Provider（按键合并：client/options 非空才替换；不修改 base 的 map）
	if len(over.Provider) > 0 {
		m := make(map[string]Provider, len(out.Provider)+len(over.Provider))
		for k, v := range out.Provider {
			m[k] = v
		}
		for k, v := range over.Provider {
			cur := m[k]
			if strings.TrimSpace(v.Client) != "" {
				cur.Client = strings.TrimSpace(v.Client)
			}
			if len(v.Options) > 0 {
				cur.Options = cloneRaw(v.Options)
			}
			m[k] = cur
		}
		out.Provider = m
	}

	// Options（完整替换对应键）
	if len(over.Options.Store) > 0 {
		out.Options.Store = cloneRaw(over.Options.Store)
	}
	if len(over.Options.Prompt) > 0 {
		out.Options.Prompt = cloneRaw(over.Options.Prompt)
	}

	// LLM 名称
	if s := strings.TrimSpace(over.LLM); s != "" {
		out.LLM = s
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 支持：DOC_PATH, DOCS_DIR, MODEL, LLM, MAX_PROMPT_TOKENS, REJECT_BLANK_RESPONSE, LOG_LEVEL, LOG_DIR, COMPONENTS_*
// 以及 PROVIDER__<name>__CLIENT / PROVIDER__<name>__OPTIONS_JSON。
// 数值解析失败返回错误，而不是静默忽略。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	prov := map[string]Provider{}
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[:eq]
		val := kv[eq+1:]
		nk := strings.TrimPrefix(key, EnvPrefix)
		switch nk {
		case "DOC_PATH":
			over.DocPath = strings.TrimSpace(val)
		case "DOCS_DIR":
			over.DocsDir = strings.TrimSpace(val)
		case "MODEL":
			over.Model = strings.TrimSpace(val)
		case "LLM":
			over.LLM = strings.TrimSpace(val)
		case "MAX_PROMPT_TOKENS":
			if strings.TrimSpace(val) == "" {
				continue
			}
			v, err := atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", key, err)
			}
			over.MaxPromptTokens = v
		case "REJECT_BLANK_RESPONSE":
			if strings.TrimSpace(val) == "" {
				continue
			}
			v, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", key, err)
			}
			over.RejectBlankResponse = &v
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "LOG_DIR":
			over.Logging.Dir = strings.TrimSpace(val)
		case "COMPONENTS_STORE":
			over.Components.Store = strings.TrimSpace(val)
		case "COMPONENTS_PROMPT":
			over.Components.Prompt = strings.TrimSpace(val)
		default:
			// provider.* 路径：PROVIDER__name__FOO
			if !strings.HasPrefix(nk, "PROVIDER__") {
				continue
			}
			parts := strings.Split(nk, "__")
			if len(parts) < 3 {
				continue
			}
			name := strings.TrimSpace(parts[1])
			field := strings.Join(parts[2:], "__")
			p := prov[name]
			changed := false
			switch field {
			case "CLIENT":
				if tv := strings.TrimSpace(val); tv != "" {
					p.Client = tv
					changed = true
				}
			case "OPTIONS_JSON":
				// 原样 JSON；空值视为未设置，避免清空现有配置
				if tv := strings.TrimSpace(val); tv != "" {
					if !json.Valid([]byte(tv)) {
						return Config{}, fmt.Errorf("%s: invalid json", key)
					}
					p.Options = json.RawMessage(tv)
					changed = true
				}
			}
			// 仅在发生有效变更时记录该 provider；避免空值覆盖配置文件
			if changed {
				prov[name] = p
			}
		}
	}
	if len(prov) > 0 {
		over.Provider = prov
	}
	return over, nil
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func atoi(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
