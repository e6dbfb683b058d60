//go:build windows

package filesystem

import (
	"os"
	"path/filepath"
	"testing"
)

// TestOSReplaceOverwrites MoveFileEx 覆盖已存在的目标并移除临时文件 (Windows only)
func TestOSReplaceOverwrites(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "README.md")
	tmp := filepath.Join(dir, ".tmp-1")
	if err := os.WriteFile(dest, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tmp, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := osReplace(tmp, dest); err != nil {
		t.Fatalf("replace: %v", err)
	}
	b, _ := os.ReadFile(dest)
	if string(b) != "v2" {
		t.Fatalf("content %q", string(b))
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("temp file still present: %v", err)
	}
}
