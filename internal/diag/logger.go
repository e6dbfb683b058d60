package diag

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger 为结构化日志器：每个事件一行 JSON，由 zerolog 编码。
// 字段：level, ts, corr_id, comp, stage(start|finish|error|warn), code, dur_ms, path, msg, kv。
// 不持有全局状态；由调用方显式传递。nil *Logger 的所有方法均为 no-op。
type Logger struct {
	zl zerolog.Logger
}

// NewLogger 以关联 ID 与级别构造日志器，写入 sink（为 nil 时丢弃）。
func NewLogger(corrID, level string, sink io.Writer) *Logger {
	if sink == nil {
		sink = io.Discard
	}
	zl := zerolog.New(sink).Level(ParseLevel(level)).With().Str("corr_id", corrID).Logger()
	return &Logger{zl: zl}
}

// NopLogger 返回丢弃一切输出的日志器。
func NopLogger() *Logger { return &Logger{zl: zerolog.Nop()} }

// ParseLevel 解析 debug|info|warn|error；未知值视为 info。
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Enabled 报告该级别是否会被输出。
func (l *Logger) Enabled(lv zerolog.Level) bool {
	return l != nil && l.zl.GetLevel() <= lv
}

func (l *Logger) event(lv zerolog.Level, comp, stage, path string) *zerolog.Event {
	if l == nil {
		return nil
	}
	ev := l.zl.WithLevel(lv)
	if ev == nil {
		return nil
	}
	ev = ev.Str("ts", NowUTC()).Str("comp", comp).Str("stage", stage)
	if path != "" {
		ev = ev.Str("path", path)
	}
	return ev
}

func withKV(ev *zerolog.Event, kv map[string]string) *zerolog.Event {
	if len(kv) == 0 {
		return ev
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := zerolog.Dict()
	for _, k := range keys {
		d = d.Str(k, kv[k])
	}
	return ev.Dict("kv", d)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "", nil)
}

// StartWith 记录带 path 与键值的 start。
func (l *Logger) StartWith(comp, msg, path string, kv map[string]string) *Timer {
	if ev := l.event(zerolog.InfoLevel, comp, "start", path); ev != nil {
		withKV(ev, kv).Str("msg", msg).Send()
	}
	return &Timer{l: l, comp: comp, path: path, t0: time.Now()}
}

// Debug 输出调试事件（仅在 level=debug 时生效）。
func (l *Logger) Debug(comp, msg, path string, kv map[string]string) {
	if ev := l.event(zerolog.DebugLevel, comp, "debug", path); ev != nil {
		withKV(ev, kv).Str("msg", msg).Send()
	}
}

// Warn 记录告警事件（例如提示词超出预算）。
func (l *Logger) Warn(comp, code, msg, path string, kv map[string]string) {
	if ev := l.event(zerolog.WarnLevel, comp, "warn", path); ev != nil {
		if code != "" {
			ev = ev.Str("code", code)
		}
		withKV(ev, kv).Str("msg", msg).Send()
	}
}

// Error 记录 error 事件（不采样）。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", nil)
}

// ErrorWithKV 支持 path 与附带键值对（例如 HTTP 状态码、上游错误片段）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, path string, kv map[string]string) {
	ev := l.event(zerolog.ErrorLevel, comp, "error", path)
	if ev == nil {
		return
	}
	if code != "" {
		ev = ev.Str("code", code)
	}
	if durSince != nil {
		ev = ev.Int64("dur_ms", time.Since(*durSince).Milliseconds())
	}
	withKV(ev, kv).Str("msg", msg).Send()
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l    *Logger
	comp string
	path string
	t0   time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	t.FinishWith(msg, count, nil)
}

// FinishWith 记录带键值的 finish。
func (t *Timer) FinishWith(msg string, count int64, kv map[string]string) {
	if t == nil || t.l == nil {
		return
	}
	ev := t.l.event(zerolog.InfoLevel, t.comp, "finish", t.path)
	if ev == nil {
		return
	}
	ev = ev.Int64("dur_ms", time.Since(t.t0).Milliseconds())
	if count != 0 {
		ev = ev.Int64("count", count)
	}
	withKV(ev, kv).Str("msg", msg).Send()
}

// Since 返回计时起点（用于错误事件的 dur_ms）。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	t0 := t.t0
	return &t0
}
