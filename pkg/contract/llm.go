package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ModelClient: 向指定模型发送提示词并返回原始文本。
// 单次调用、同步返回；不做重试；应尊重 ctx 取消。
// 约束：成功时原样返回模型完整输出，不做清洗/截断。
type ModelClient interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// GuardModel 将任意 ModelClient 包装为统一错误边界：
//   - 空模型名或空提示词直接拒绝（ErrInvalidInput），不发起调用；
//   - 所有失败统一为 *ModelInvocationError（已是该类型则不重复包装）；
//   - rejectBlank 为 true 时，仅含空白的响应视为 ErrResponseInvalid；
//     默认（false）原样返回任意响应，包括空串。
func GuardModel(provider string, c ModelClient, rejectBlank bool) ModelClient {
	if c == nil {
		return nil
	}
	if g, ok := c.(*guardedModel); ok {
		if rejectBlank && !g.rejectBlank {
			return &guardedModel{provider: g.provider, next: g.next, rejectBlank: true}
		}
		return g
	}
	return &guardedModel{provider: provider, next: c, rejectBlank: rejectBlank}
}

type guardedModel struct {
	provider    string
	next        ModelClient
	rejectBlank bool
}

func (g *guardedModel) Generate(ctx context.Context, model, prompt string) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", g.wrap(model, fmt.Errorf("%w: empty model name", ErrInvalidInput))
	}
	if prompt == "" {
		return "", g.wrap(model, fmt.Errorf("%w: empty prompt", ErrInvalidInput))
	}
	text, err := g.next.Generate(ctx, model, prompt)
	if err != nil {
		return "", g.wrap(model, err)
	}
	if g.rejectBlank && strings.TrimSpace(text) == "" {
		return "", g.wrap(model, fmt.Errorf("%w: empty response", ErrResponseInvalid))
	}
	return text, nil
}

func (g *guardedModel) wrap(model string, err error) error {
	var mie *ModelInvocationError
	if errors.As(err, &mie) {
		return err
	}
	return &ModelInvocationError{Provider: g.provider, Model: model, Err: err}
}
