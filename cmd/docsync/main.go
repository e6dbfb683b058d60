package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "docsync/internal/config"
	"docsync/internal/diag"
	"docsync/internal/updater"
)

// version 由构建时 -ldflags "-X main.version=..." 注入。
var version = "dev"

// 退出码：0 成功；1 任一步骤失败；2 用法或配置错误。
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitError 携带退出码；err 为 nil 时不再打印。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := loadDotEnv(".env"); err != nil {
		fprintf(stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil && !errors.Is(ee.err, context.Canceled) {
			fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	// cobra 自身的用法错误（未知旗标、缺少必填项等）
	fprintf(stderr, "Error: %v\n", err)
	fprintf(stderr, "Run '%s --help' for usage.\n", root.CommandPath())
	return exitUsage
}

// app 聚合旗标与 I/O；每次 run 构造一次，无全局可变状态。
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	llm        string
	model      string
	verbose    bool
	status     bool

	diff    string
	docPath string
	docsDir string
	asJSON  bool
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docsync",
		Short: "Update documentation from code changes with a local LLM",
		Long: "docsync sends a documentation file and a code diff to a locally hosted model\n" +
			"and replaces the file with the model's rewritten version.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE:          a.runUpdate,
	}
	a.bindGlobal(root.PersistentFlags())
	fs := root.Flags()
	fs.StringVar(&a.diff, "diff", "", "code changes to document (opaque text; '-' reads STDIN)")
	fs.StringVar(&a.docPath, "doc-path", cfgpkg.Defaults().DocPath, "documentation file to update")
	_ = root.MarkFlagRequired("diff")

	root.AddCommand(a.affectedCmd(), a.initConfigCmd(), a.versionCmd())
	return root
}

// bindGlobal 绑定所有子命令共享的旗标。
func (a *app) bindGlobal(fs *pflag.FlagSet) {
	d := cfgpkg.Defaults()
	fs.StringVar(&a.configPath, "config", "", "config file (YAML or JSON); default ./docsync.yaml or ./docsync.json if present")
	fs.StringVar(&a.llm, "llm", d.LLM, "provider name (overrides config)")
	fs.StringVar(&a.model, "model", d.Model, "model name (overrides config)")
	fs.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging and a unified diff preview of the change")
	fs.BoolVar(&a.status, "status", true, "terminal status lines on stderr")
}

func (a *app) affectedCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "affected",
		Short: "List documentation files a diff may affect (analysis only, nothing is updated)",
		Args:  cobra.NoArgs,
		RunE:  a.runAffected,
	}
	fs := c.Flags()
	fs.StringVar(&a.diff, "diff", "", "code changes to analyse ('-' reads STDIN)")
	fs.StringVar(&a.docsDir, "docs-dir", cfgpkg.Defaults().DocsDir, "directory holding the markdown documentation")
	fs.BoolVar(&a.asJSON, "json", false, "print a JSON array instead of one path per line")
	_ = c.MarkFlagRequired("diff")
	return c
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fprintf(a.stdout, "docsync %s\n", version)
		},
	}
}

// session 为一次调用装配好的运行期对象。
type session struct {
	cfg    cfgpkg.Config
	logger *diag.Logger
	upd    *updater.Updater
	close  func()
}

// prepare 合并配置（Defaults < 文件 < ENV < CLI），构造日志器与 Updater。
// 失败均视为配置错误（退出码 2）。
func (a *app) prepare(cmd *cobra.Command) (*session, error) {
	corrID := uuid.NewString()
	usage := func(format string, err error) error {
		return &exitError{code: exitUsage, err: fmt.Errorf(format, err)}
	}

	cfg := cfgpkg.Defaults()
	if path, raw := cfgpkg.Locate(a.configPath, os.Getenv); path != "" || len(raw) > 0 {
		base, err := cfgpkg.Load(path, raw)
		if err != nil {
			return nil, usage("配置解析失败: %w", err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return nil, usage("环境变量解析失败: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)
	cfg = cfgpkg.Merge(cfg, a.cliOverlay(cmd))
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		return nil, usage("配置校验失败: %w", err)
	}

	var sink io.Writer = a.stderr
	closeFn := func() {}
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		rf := diag.NewRotatingFile(dir, 0)
		sink = rf
		closeFn = func() { _ = rf.Close() }
	}
	logger := diag.NewLogger(corrID, cfg.Logging.Level, sink)
	logger.Debug("config", "effective", "", cfgpkg.Summary(cfg))

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		closeFn()
		return nil, usage("装配失败: %w", err)
	}
	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(a.stderr, a.status)
	upd, err := updater.New(comp, set, logger, term)
	if err != nil {
		closeFn()
		return nil, usage("装配失败: %w", err)
	}
	return &session{cfg: cfg, logger: logger, upd: upd, close: closeFn}, nil
}

// cliOverlay 仅收集显式给出的旗标，使旗标默认值不覆盖文件/ENV。
func (a *app) cliOverlay(cmd *cobra.Command) cfgpkg.Config {
	var over cfgpkg.Config
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("llm") {
		over.LLM = a.llm
	}
	if changed("model") {
		over.Model = a.model
	}
	if changed("doc-path") {
		over.DocPath = a.docPath
	}
	if changed("docs-dir") {
		over.DocsDir = a.docsDir
	}
	return over
}

func (a *app) runUpdate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	diff, err := readDiff(a.diff, a.stdin)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	s, err := a.prepare(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	t := s.logger.StartWith("cli", "update", s.cfg.DocPath, nil)
	res, err := s.upd.UpdateDocumentation(ctx, diff, s.cfg.DocPath)
	if err != nil {
		s.logger.Error("cli", string(diag.Classify(err)), "first error", &start)
		return &exitError{code: exitFailure, err: err}
	}
	t.Finish("update", int64(len(res.After)))

	if a.verbose {
		pv, perr := updater.Preview(res.Path, res.Before, res.After)
		switch {
		case perr != nil:
			s.logger.Warn("cli", string(diag.Classify(perr)), "preview failed", res.Path, nil)
		case pv == "":
			fprintf(a.stderr, "(no changes)\n")
		default:
			fprintf(a.stderr, "%s", pv)
		}
	}
	fprintf(a.stdout, "Successfully updated %s\n", res.Path)
	return nil
}

func (a *app) runAffected(cmd *cobra.Command, args []string) error {
	start := time.Now()
	diff, err := readDiff(a.diff, a.stdin)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	s, err := a.prepare(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	paths, err := s.upd.IdentifyAffectedDocs(ctx, diff, s.cfg.DocsDir)
	if err != nil {
		s.logger.Error("cli", string(diag.Classify(err)), "first error", &start)
		return &exitError{code: exitFailure, err: err}
	}
	if a.asJSON {
		enc := json.NewEncoder(a.stdout)
		if err := enc.Encode(paths); err != nil {
			return &exitError{code: exitFailure, err: err}
		}
		return nil
	}
	for _, p := range paths {
		fprintf(a.stdout, "%s\n", p)
	}
	return nil
}

// readDiff: "-" 表示从 STDIN 读取整个 diff；其余值原样作为 diff 文本。
func readDiff(arg string, stdin io.Reader) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	if stdin == nil {
		return "", errors.New("--diff -: stdin unavailable")
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read diff from stdin: %w", err)
	}
	return string(b), nil
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }
