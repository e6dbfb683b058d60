//go:build !windows

package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// TestWritePreservesMode 原子替换保留原文件权限 (Unix only)
func TestWritePreservesMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	s, _ := New(nil)
	doc, _ := s.Read(context.Background(), path)
	if err := s.Write(context.Background(), doc, "v2"); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("mode %v", st.Mode().Perm())
	}
}

// TestWriteReadOnlyDir 目录不可写时失败且原内容不变 (Unix only)
func TestWriteReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, _ := New(nil)
	doc, _ := s.Read(context.Background(), path)
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dir, 0o755)
	if err := s.Write(context.Background(), doc, "v2"); err == nil {
		t.Fatalf("expect write error")
	}
	b, _ := os.ReadFile(path)
	if string(b) != "v1" {
		t.Fatalf("content changed: %q", string(b))
	}
}

// TestWriteThroughSymlink 写入符号链接时改写链接目标，链接本身保留 (Unix only)
func TestWriteThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "docs", "README.md")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "README.md")
	if err := os.Symlink(filepath.Join("docs", "README.md"), link); err != nil {
		t.Fatal(err)
	}
	for _, atomic := range []bool{true, false} {
		a := atomic
		s, _ := New(&Options{Atomic: &a})
		doc, err := s.Read(context.Background(), link)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		want := "new"
		if !a {
			want = "newer"
		}
		if err := s.Write(context.Background(), doc, want); err != nil {
			t.Fatalf("atomic=%v write: %v", a, err)
		}
		fi, err := os.Lstat(link)
		if err != nil {
			t.Fatal(err)
		}
		if fi.Mode()&os.ModeSymlink == 0 {
			t.Fatalf("atomic=%v: link replaced by regular file", a)
		}
		b, _ := os.ReadFile(target)
		if string(b) != want {
			t.Fatalf("atomic=%v: target content %q want %q", a, string(b), want)
		}
		left, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
		if len(left) != 0 {
			t.Fatalf("temp file in link dir: %v", left)
		}
	}
}
