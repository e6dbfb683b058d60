package updater

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"docsync/internal/diag"
	"docsync/internal/prompt"
	"docsync/pkg/contract"
)

// - 单次调用、顺序执行：读取 → 构造提示词 → 模型生成 → 整体写回。
// - 全有或全无：仅在生成成功后写回；任一步失败即返回首错，文档保持原样。
// - 不重试、不加超时：超时由模型客户端自身配置。
// - 同路径互斥：进程内按路径加锁；进程外的并发写由存储层写前校验发现。

// Components 聚合运行所需的原子组件。
type Components struct {
	Store   contract.DocumentStore
	Prompts contract.PromptBuilder
	Model   contract.ModelClient
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// Provider 仅用于日志与错误上下文
	Provider string
	Model    string
	// 预算：仅告警不拦截；<=0 关闭
	MaxPromptTokens int
	BytesPerToken   int
	// RejectBlankResponse: 为 true 时空白响应视为模型失败；默认原样写回。
	RejectBlankResponse bool
}

// Result 描述一次成功的更新。
type Result struct {
	Path     string
	Model    string
	Before   string
	After    string
	Changed  bool
	Duration time.Duration
}

// Updater 编排一次文档更新。可被多个 goroutine 并发使用。
type Updater struct {
	comp   Components
	set    Settings
	model  contract.ModelClient
	logger *diag.Logger
	term   *diag.Terminal
	locks  *pathLocks
}

// New 校验组件并构造 Updater；logger/term 可为 nil。
func New(comp Components, set Settings, logger *diag.Logger, term *diag.Terminal) (*Updater, error) {
	if err := sanity(comp, set); err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	return &Updater{
		comp:   comp,
		set:    set,
		model:  contract.GuardModel(set.Provider, comp.Model, set.RejectBlankResponse),
		logger: logger,
		term:   term,
		locks:  newPathLocks(),
	}, nil
}

func sanity(comp Components, set Settings) error {
	switch {
	case comp.Store == nil:
		return fmt.Errorf("%w: store is nil", contract.ErrInvalidInput)
	case comp.Prompts == nil:
		return fmt.Errorf("%w: prompt builder is nil", contract.ErrInvalidInput)
	case comp.Model == nil:
		return fmt.Errorf("%w: model client is nil", contract.ErrInvalidInput)
	case strings.TrimSpace(set.Model) == "":
		return fmt.Errorf("%w: model name is empty", contract.ErrInvalidInput)
	}
	return nil
}

// UpdateDocumentation 用模型重写 docPath，使其反映 diff 中的代码变更。
// 失败时返回的错误为以下之一（可用 errors.As 判定）：
//   - *contract.DocumentNotFoundError：文档不存在，未调用模型；
//   - *contract.DocumentReadError：文档存在但读取失败；
//   - *contract.ModelInvocationError：模型调用失败，文档未改动；
//   - *contract.DocumentWriteError：生成成功但写回失败，Content 保留生成结果。
//
// 提示词模板渲染失败属于配置错误，原样返回。
func (u *Updater) UpdateDocumentation(ctx context.Context, diff, docPath string) (res Result, err error) {
	start := time.Now()
	u.term.RunStart("update", docPath, u.set.Provider, u.set.Model)
	defer func() { u.term.RunFinish(err == nil, diag.Classify(err), time.Since(start)) }()

	path := contract.NormalizePath(docPath)
	unlock := u.locks.lock(docPath)
	defer unlock()

	doc, err := u.read(ctx, docPath, path)
	if err != nil {
		return Result{}, err
	}

	p, err := u.comp.Prompts.Update(doc.Content, diff)
	if err != nil {
		u.logger.ErrorWithKV("prompt_builder", string(diag.Classify(err)), "build update prompt failed", nil, path, nil)
		return Result{}, fmt.Errorf("build update prompt: %w", err)
	}

	text, err := u.generate(ctx, "update", path, p)
	if err != nil {
		return Result{}, err
	}

	wt := u.logger.StartWith("store", "write", path, nil)
	if werr := u.comp.Store.Write(ctx, doc, text); werr != nil {
		u.logger.ErrorWithKV("store", string(diag.Classify(werr)), "write failed", wt.Since(), path, nil)
		return Result{}, &contract.DocumentWriteError{Path: docPath, Content: text, Err: werr}
	}
	wt.Finish("write", int64(len(text)))

	return Result{
		Path:     docPath,
		Model:    u.set.Model,
		Before:   doc.Content,
		After:    text,
		Changed:  text != doc.Content,
		Duration: time.Since(start),
	}, nil
}

// IdentifyAffectedDocs 让模型列出 docsDir 下可能受 diff 影响的 markdown 文件。
// 结果为模型输出的逐行路径（去空白、去空行、保持顺序），不校验路径是否存在。
func (u *Updater) IdentifyAffectedDocs(ctx context.Context, diff, docsDir string) (paths []string, err error) {
	start := time.Now()
	u.term.RunStart("affected", docsDir, u.set.Provider, u.set.Model)
	defer func() { u.term.RunFinish(err == nil, diag.Classify(err), time.Since(start)) }()

	dir := contract.NormalizePath(docsDir)
	p, err := u.comp.Prompts.AffectedDocs(diff, docsDir)
	if err != nil {
		u.logger.ErrorWithKV("prompt_builder", string(diag.Classify(err)), "build affected prompt failed", nil, dir, nil)
		return nil, fmt.Errorf("build affected prompt: %w", err)
	}
	text, err := u.generate(ctx, "affected", dir, p)
	if err != nil {
		return nil, err
	}
	paths = ParseAffectedPaths(text)
	u.logger.Debug("updater", "affected paths parsed", dir, map[string]string{"count": strconv.Itoa(len(paths))})
	return paths, nil
}

// ParseAffectedPaths 按行切分模型输出：去除首尾空白，丢弃空行，保持原顺序。
func ParseAffectedPaths(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (u *Updater) read(ctx context.Context, docPath, logPath string) (contract.Document, error) {
	rt := u.logger.StartWith("store", "read", logPath, nil)
	doc, err := u.comp.Store.Read(ctx, docPath)
	if err != nil {
		var out error
		if errors.Is(err, fs.ErrNotExist) {
			out = &contract.DocumentNotFoundError{Path: docPath, Err: err}
		} else {
			out = &contract.DocumentReadError{Path: docPath, Err: err}
		}
		u.logger.ErrorWithKV("store", string(diag.Classify(out)), "read failed", rt.Since(), logPath, nil)
		return contract.Document{}, out
	}
	rt.Finish("read", int64(len(doc.Content)))
	return doc, nil
}

func (u *Updater) generate(ctx context.Context, kind, logPath, p string) (string, error) {
	tokens, over := prompt.OverBudget(p, u.set.BytesPerToken, u.set.MaxPromptTokens)
	kv := map[string]string{
		"kind":   kind,
		"model":  u.set.Model,
		"tokens": strconv.Itoa(tokens),
	}
	if over {
		u.logger.Warn("updater", "budget", "prompt exceeds max_prompt_tokens", logPath, map[string]string{
			"tokens": strconv.Itoa(tokens),
			"max":    strconv.Itoa(u.set.MaxPromptTokens),
		})
	}
	mt := u.logger.StartWith("model", "generate", logPath, kv)
	u.term.Waiting(kind)
	text, err := u.model.Generate(ctx, u.set.Model, p)
	if err != nil {
		var ekv map[string]string
		var ue contract.UpstreamError
		if errors.As(err, &ue) {
			ekv = map[string]string{"status": strconv.Itoa(ue.UpstreamStatus()), "upstream": ue.UpstreamMessage()}
		}
		u.logger.ErrorWithKV("model", string(diag.Classify(err)), err.Error(), mt.Since(), logPath, ekv)
		return "", err
	}
	mt.Finish("generate", int64(len(text)))
	return text, nil
}
