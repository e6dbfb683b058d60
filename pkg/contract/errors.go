package contract

import (
	"errors"
	"fmt"
)

// 原因类哨兵错误：作为下列错误类型的 Err 出现，用 errors.Is 判定。
var (
	// ErrInvalidInput: 调用参数或上游 4xx 判定为无效输入。
	ErrInvalidInput = errors.New("invalid input")
	// ErrResponseInvalid: 模型响应无法解析或为空。
	ErrResponseInvalid = errors.New("response invalid")
	// ErrRateLimited: 上游限流（HTTP 429）。
	ErrRateLimited = errors.New("rate limited")
	// ErrDocumentChanged: 读取后文档已被其他写者修改（写前校验失败）。
	ErrDocumentChanged = errors.New("document changed since read")
	// ErrPathInvalid: 路径为空或指向目录等无法作为文档的位置。
	ErrPathInvalid = errors.New("path invalid")
)

// DocumentNotFoundError: 目标文档不存在。未发生模型调用，也未写入。
type DocumentNotFoundError struct {
	Path string
	Err  error
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("documentation file not found: %s", e.Path)
}

func (e *DocumentNotFoundError) Unwrap() error { return e.Err }

// DocumentReadError: 文档存在但读取失败（权限、I/O、目录等）。
type DocumentReadError struct {
	Path string
	Err  error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("read documentation file %s: %v", e.Path, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// ModelInvocationError: 模型调用的统一失败形态（传输、超时、上游错误、空响应）。
// 仅在客户端边界（GuardModel）包装一次。
type ModelInvocationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ModelInvocationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("model %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("model %s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// DocumentWriteError: 生成成功但写回失败。
// Content 保留已生成的新内容，供调用方记录或恢复。
type DocumentWriteError struct {
	Path    string
	Content string
	Err     error
}

func (e *DocumentWriteError) Error() string {
	return fmt.Sprintf("write documentation file %s: %v", e.Path, e.Err)
}

func (e *DocumentWriteError) Unwrap() error { return e.Err }
