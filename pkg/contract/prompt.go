package contract

// Template: 版本化的提示词模板（数据而非内联代码）。
// Text 为 text/template 源文本。
type Template struct {
	Name    string
	Version string
	Text    string
}

// ID 返回 "name@version"，用于日志。
func (t Template) ID() string {
	if t.Version == "" {
		return t.Name
	}
	return t.Name + "@" + t.Version
}

// PromptBuilder: 构造两类提示词。
// 约束：
//   - 纯计算，不做 I/O；
//   - 相同输入产出逐字节相同的提示词；
//   - 不修改 diff/文档内容，原样嵌入。
type PromptBuilder interface {
	// AffectedDocs: diff + 文档目录 → 要求模型逐行列出受影响的 markdown 路径。
	AffectedDocs(diff, docsDir string) (string, error)
	// Update: 当前文档 + diff → 要求模型返回完整替换文档。
	Update(currentDoc, diff string) (string, error)
}

// TokenEstimator: 文本→token 的近似估算函数。
type TokenEstimator func(s string) int
