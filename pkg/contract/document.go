package contract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Document: 一次读取得到的完整文档。
// Digest 为读取字节的 SHA-256，仅用于写前校验。
type Document struct {
	Path    string
	Content string
	Digest  string
}

// DocumentStore: 整文件读写。
// 约束：
//  1. Read 原样返回错误（不存在时可用 errors.Is(err, fs.ErrNotExist) 判定）；
//  2. Write 整体替换，不做合并/补丁；
//  3. ctx 取消需尽快返回；
//  4. 不做重试。
type DocumentStore interface {
	Read(ctx context.Context, path string) (Document, error)
	Write(ctx context.Context, doc Document, content string) error
}

// Digest 计算内容摘要（十六进制 SHA-256）。
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
