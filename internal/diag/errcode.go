package diag

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"docsync/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeNotFound  Code = "not_found"
	CodeRead      Code = "read"
	CodeModel     Code = "model"
	CodeWrite     Code = "write"
	CodeConflict  Code = "conflict"
	CodeNetwork   Code = "network"
	CodeRateLimit Code = "rate_limit"
	CodeProtocol  Code = "protocol"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。
// 说明：先看原因（取消/冲突/网络等更具体的信息），再看错误类型；不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	if errors.Is(err, contract.ErrDocumentChanged) {
		return CodeConflict
	}
	if errors.Is(err, contract.ErrRateLimited) {
		return CodeRateLimit
	}
	if errors.Is(err, contract.ErrResponseInvalid) {
		return CodeProtocol
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeNetwork
	}
	var nf *contract.DocumentNotFoundError
	var re *contract.DocumentReadError
	var me *contract.ModelInvocationError
	var we *contract.DocumentWriteError
	switch {
	case errors.As(err, &nf):
		return CodeNotFound
	case errors.As(err, &re):
		return CodeRead
	case errors.As(err, &me):
		return CodeModel
	case errors.As(err, &we):
		return CodeWrite
	}
	if errors.Is(err, contract.ErrInvalidInput) || errors.Is(err, contract.ErrPathInvalid) {
		return CodeInvariant
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串（用于结构化日志字段 ts）。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
