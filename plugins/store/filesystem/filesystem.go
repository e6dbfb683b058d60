package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"docsync/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。
	// 默认值：true。未提供该字段时采用原子写；显式 false 退化为原地截断写。
	Atomic *bool `json:"atomic,omitempty" yaml:"atomic,omitempty"`
	// CheckUnchanged: 写前重新计算磁盘内容摘要，与读取时不一致则拒绝写入。
	// 默认值：true。
	CheckUnchanged *bool `json:"check_unchanged,omitempty" yaml:"check_unchanged,omitempty"`
	// PermFile: 新建文件权限；为 0 时使用 0644。已存在文件保留原权限。
	PermFile os.FileMode `json:"perm_file,omitempty" yaml:"perm_file,omitempty"`
	// BufSize: 读写缓冲区大小；<=0 使用实现默认。
	BufSize int `json:"buf_size,omitempty" yaml:"buf_size,omitempty"`
}

// FS 为基于本地文件系统的 DocumentStore。
type FS struct {
	atomic  bool
	check   bool
	permF   os.FileMode
	bufSize int
}

// New 创建文件系统 DocumentStore 实现。
func New(opts *Options) (*FS, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	bsz := o.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := o.PermFile
	if pf == 0 {
		pf = 0o644
	}
	atomic := true
	if o.Atomic != nil {
		atomic = *o.Atomic
	}
	check := true
	if o.CheckUnchanged != nil {
		check = *o.CheckUnchanged
	}
	return &FS{atomic: atomic, check: check, permF: pf, bufSize: bsz}, nil
}

var _ contract.DocumentStore = (*FS)(nil)

// Read 读取整个文件。不存在时返回的错误满足 errors.Is(err, fs.ErrNotExist)。
func (s *FS) Read(ctx context.Context, path string) (contract.Document, error) {
	select {
	case <-ctx.Done():
		return contract.Document{}, ctx.Err()
	default:
	}
	if strings.TrimSpace(path) == "" {
		return contract.Document{}, fmt.Errorf("%w: empty path", contract.ErrPathInvalid)
	}
	b, err := s.readAll(ctx, path)
	if err != nil {
		return contract.Document{}, err
	}
	return contract.Document{Path: path, Content: string(b), Digest: contract.Digest(b)}, nil
}

func (s *FS) readAll(ctx context.Context, path string) ([]byte, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w: not a regular file", path, contract.ErrPathInvalid)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(readerWithCtx(ctx, bufio.NewReaderSize(f, s.bufSize)))
}

// Write 以 content 整体替换 doc.Path 的内容。
func (s *FS) Write(ctx context.Context, doc contract.Document, content string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if strings.TrimSpace(doc.Path) == "" {
		return fmt.Errorf("%w: empty path", contract.ErrPathInvalid)
	}
	dest, err := resolveTarget(doc.Path)
	if err != nil {
		return err
	}
	perm := s.permF
	st, err := os.Stat(dest)
	switch {
	case err == nil:
		if !st.Mode().IsRegular() {
			return fmt.Errorf("%s: %w: not a regular file", dest, contract.ErrPathInvalid)
		}
		perm = st.Mode().Perm()
	case errors.Is(err, fs.ErrNotExist):
		if s.check && doc.Digest != "" {
			// 读取后被删除
			return fmt.Errorf("%s: removed: %w", dest, contract.ErrDocumentChanged)
		}
	default:
		return err
	}
	if s.check && doc.Digest != "" && st != nil {
		cur, err := s.readAll(ctx, dest)
		if err != nil {
			return err
		}
		if contract.Digest(cur) != doc.Digest {
			return fmt.Errorf("%s: %w", dest, contract.ErrDocumentChanged)
		}
	}

	r := strings.NewReader(content)
	if s.atomic {
		return s.writeAtomic(ctx, dest, perm, r)
	}
	return s.writeOverwrite(ctx, dest, perm, r)
}

func (s *FS) writeOverwrite(ctx context.Context, dest string, perm os.FileMode, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	// 确保及时关闭
	defer f.Close()

	bw := bufio.NewWriterSize(f, s.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func (s *FS) writeAtomic(ctx context.Context, dest string, perm os.FileMode, r io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	// 目标权限：与原文件一致
	_ = os.Chmod(tmpPath, perm)

	bw := bufio.NewWriterSize(tmp, s.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = bw.Flush()
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 平台特定的原子替换（或最佳努力）：
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 最佳努力：在部分平台同步父目录，提升崩溃安全性
	_ = syncDir(dir)
	return nil
}

// resolveTarget: 符号链接解析为最终目标，使替换作用于真实文档而链接保留。
// 目标尚不存在时按原路径写入。
func resolveTarget(path string) (string, error) {
	target, err := filepath.EvalSymlinks(path)
	switch {
	case err == nil:
		return target, nil
	case errors.Is(err, fs.ErrNotExist):
		return path, nil
	default:
		return "", err
	}
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
