//go:build windows

package filesystem

import (
	"golang.org/x/sys/windows"
)

// osReplace 以 MoveFileEx(REPLACE_EXISTING|WRITE_THROUGH) 覆盖目标文档；
// 同卷内为原子替换，返回前数据已落盘。
func osReplace(tmpPath, dest string) error {
	from, err := windows.UTF16PtrFromString(tmpPath)
	if err != nil {
		return err
	}
	to, err := windows.UTF16PtrFromString(dest)
	if err != nil {
		return err
	}
	return windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}

// syncDir: Windows 无法对目录句柄 fsync，WRITE_THROUGH 已覆盖元数据持久化。
func syncDir(string) error { return nil }
