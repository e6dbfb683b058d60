package docprompt

import "docsync/pkg/contract"

// UpdateTemplateV1: 文档更新提示词。
var UpdateTemplateV1 = contract.Template{
	Name:    "update",
	Version: "v1",
	Text: `Update the following documentation based on the code changes.
Keep the same markdown structure and formatting.
Only modify sections that need updating based on the code changes.
Be very brief regarding the changes.
Don't include code in the generated documentation.

Documentation file content:
{{.Document}}

Code changes:
{{.Diff}}
`,
}

// AffectedDocsTemplateV1: 受影响文档分析提示词。
var AffectedDocsTemplateV1 = contract.Template{
	Name:    "affected_docs",
	Version: "v1",
	Text: `Analyze this git diff and identify which markdown files in the {{.Directory}}
directory need to be updated. Return only the file paths, one per line.

Git diff:
{{.Diff}}
`,
}
