package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "docsync/internal/config"
)

const configFileName = "docsync.yaml"

func (a *app) initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "Write a default docsync.yaml and .env template (existing files are kept)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			return a.runInitConfig(dir)
		},
	}
}

// runInitConfig 在 dir 下生成 docsync.yaml 与 .env 模板；已存在的文件跳过，不覆盖、不合并。
func (a *app) runInitConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &exitError{code: exitFailure, err: fmt.Errorf("生成默认配置失败: %w", err)}
	}
	body, err := cfgpkg.EncodeYAML(cfgpkg.DefaultTemplateConfig())
	if err != nil {
		return &exitError{code: exitFailure, err: fmt.Errorf("生成默认配置失败: %w", err)}
	}
	files := []struct {
		name string
		body []byte
	}{
		{configFileName, body},
		{".env", []byte(cfgpkg.EnvTemplate())},
	}
	for _, f := range files {
		p := filepath.Join(dir, f.name)
		created, err := writeExclusive(p, f.body)
		if err != nil {
			return &exitError{code: exitFailure, err: fmt.Errorf("生成 %s 失败: %w", f.name, err)}
		}
		if created {
			fprintf(a.stdout, "created %s\n", p)
		} else {
			fprintf(a.stderr, "skip %s (exists)\n", p)
		}
	}
	return nil
}

// writeExclusive 仅在文件不存在时创建并写入；已存在返回 created=false。
func writeExclusive(path string, b []byte) (created bool, err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return true, err
	}
	return true, f.Close()
}
