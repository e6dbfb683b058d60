package updater

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Preview 生成 before→after 的统一 diff 文本（3 行上下文），用于 --verbose 预览。
// 内容相同时返回空串。
func Preview(path string, before, after string) (string, error) {
	if before == after {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}
