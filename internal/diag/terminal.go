package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认建议 stderr）。
// - TTY: 等待模型时单行 \r 覆盖；非 TTY: 仅关键节点分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。nil *Terminal 亦为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	tag   lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	faint lipgloss.Style

	// 运行期最小状态
	action   string
	target   string
	runStart time.Time
	lastLen  int

	mu sync.Mutex
}

// NewTerminal 构造终端提示器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") != "" {
		t.isTTY = false
	} else if f, ok := w.(*os.File); ok {
		t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	// 渲染器绑定到实际输出，非 TTY 时自动降级为无颜色
	r := lipgloss.NewRenderer(w)
	t.tag = r.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	t.ok = r.NewStyle().Foreground(lipgloss.Color("78"))
	t.fail = r.NewStyle().Foreground(lipgloss.Color("197"))
	t.faint = r.NewStyle().Faint(true)
	return t
}

// RunStart: 记录本次操作（update/affected）、目标与模型。
func (t *Terminal) RunStart(action, target, provider, model string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.action = action
	t.target = shortenBase(target, 48)
	t.runStart = time.Now()
	t.println(fmt.Sprintf("%s %s %s | model=%s/%s",
		t.tag.Render("[run]"), action, t.target, safe(provider), safe(model)))
}

// Waiting: 模型调用前的提示；TTY 单行覆盖，非 TTY 不输出。
func (t *Terminal) Waiting(stage string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY {
		return
	}
	t.printInline(t.faint.Render(fmt.Sprintf("[wait] %s | 等待模型响应… | 用时 %s", safe(stage), formatSince(t.runStart))))
}

// RunFinish: 结束总览；失败时附带错误分类码。
func (t *Terminal) RunFinish(ok bool, code Code, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	// 先清掉可能的行尾
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	if ok {
		t.println(fmt.Sprintf("%s %s %s | 总用时 %s", t.ok.Render("[ok]"), t.action, t.target, formatDur(dur)))
		return
	}
	t.println(fmt.Sprintf("%s %s %s | %s | 总用时 %s", t.fail.Render("[fail]"), t.action, t.target, code, formatDur(dur)))
}

// 内部输出工具
func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		// 写失败即禁用
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	// 清尾：若新行比旧短，填充空格覆盖
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if base == "" {
		return ""
	}
	if visLen(base) <= max {
		return base
	}
	// 预留 1 个字符给省略号
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	rs := []rune(base)
	if len(rs) <= cut {
		return string(rs)
	}
	return string(rs[:cut]) + "…"
}

func visLen(s string) int { return lipgloss.Width(s) }

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	// 秒，保留 1 位小数
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
