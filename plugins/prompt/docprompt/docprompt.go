package docprompt

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"docsync/pkg/contract"
)

// Options 为文档更新 PromptBuilder 的最小配置。
// 每个模板均为二选一：Inline* 优先，其次 *Path；均为空时使用内置版本化模板。
type Options struct {
	InlineUpdateTemplate   string `json:"inline_update_template" yaml:"inline_update_template"`
	UpdateTemplatePath     string `json:"update_template_path" yaml:"update_template_path"`
	InlineAffectedTemplate string `json:"inline_affected_template" yaml:"inline_affected_template"`
	AffectedTemplatePath   string `json:"affected_template_path" yaml:"affected_template_path"`
}

// Builder: 渲染两类提示词。模板在构造期加载与解析，运行期不做 I/O。
type Builder struct {
	update   *template.Template
	affected *template.Template
	updateT  contract.Template
	affectT  contract.Template
}

type updateData struct {
	Document string
	Diff     string
}

type affectedData struct {
	Diff      string
	Directory string
}

// New 创建 PromptBuilder。
func New(opts *Options) (*Builder, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	ut, err := resolve(UpdateTemplateV1, o.InlineUpdateTemplate, o.UpdateTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("update template read: %w", err)
	}
	at, err := resolve(AffectedDocsTemplateV1, o.InlineAffectedTemplate, o.AffectedTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("affected template read: %w", err)
	}
	upd, err := parse(ut)
	if err != nil {
		return nil, fmt.Errorf("update template parse: %w", err)
	}
	aff, err := parse(at)
	if err != nil {
		return nil, fmt.Errorf("affected template parse: %w", err)
	}
	return &Builder{update: upd, affected: aff, updateT: ut, affectT: at}, nil
}

// resolve 按 inline > path > 内置 的顺序选择模板；覆盖时版本记为 "custom"。
func resolve(def contract.Template, inline, path string) (contract.Template, error) {
	switch {
	case inline != "":
		return contract.Template{Name: def.Name, Version: "custom", Text: inline}, nil
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return contract.Template{}, err
		}
		return contract.Template{Name: def.Name, Version: "custom", Text: string(b)}, nil
	default:
		return def, nil
	}
}

func parse(t contract.Template) (*template.Template, error) {
	return template.New(t.ID()).Option("missingkey=error").Parse(t.Text)
}

// Update: 当前文档 + diff → 更新提示词。
func (b *Builder) Update(currentDoc, diff string) (string, error) {
	var buf bytes.Buffer
	buf.Grow(len(b.updateT.Text) + len(currentDoc) + len(diff))
	if err := b.update.Execute(&buf, updateData{Document: currentDoc, Diff: diff}); err != nil {
		return "", fmt.Errorf("update render: %v: %w", err, contract.ErrInvalidInput)
	}
	return buf.String(), nil
}

// AffectedDocs: diff + 文档目录 → 受影响文档分析提示词。
func (b *Builder) AffectedDocs(diff, docsDir string) (string, error) {
	var buf bytes.Buffer
	buf.Grow(len(b.affectT.Text) + len(diff) + len(docsDir))
	if err := b.affected.Execute(&buf, affectedData{Diff: diff, Directory: docsDir}); err != nil {
		return "", fmt.Errorf("affected render: %v: %w", err, contract.ErrInvalidInput)
	}
	return buf.String(), nil
}

// Templates 返回当前生效的模板（用于日志与测试）。
func (b *Builder) Templates() (update, affected contract.Template) {
	return b.updateT, b.affectT
}

// 静态接口断言
var _ contract.PromptBuilder = (*Builder)(nil)
