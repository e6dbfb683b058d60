package contract

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// TestNormalizePath 验证路径规范化逻辑。
func TestNormalizePath(t *testing.T) {
	wpath := filepath.Join("a", "b", "c")
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"本地分隔符", wpath, "a/b/c"},
		{"父目录折叠", "./x/../y", "y"},
		{"空串", "", "."},
		{"Windows路径", "C:\\Users\\test\\README.md", "C:/Users/test/README.md"},
		{"清理多余斜杠", "docs//guide///intro.md", "docs/guide/intro.md"},
		{"混合分隔符", "docs\\api/./v1\\index.md", "docs/api/v1/index.md"},
		{"Unix绝对路径", "/home/user/../admin/README.md", "/home/admin/README.md"},
		{"复杂父目录", "a\\b\\..\\..\\..\\d", "../d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePath(tt.input); got != tt.expected {
				t.Errorf("NormalizePath(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

type stubModel struct {
	text  string
	err   error
	calls int
}

func (s *stubModel) Generate(ctx context.Context, model, prompt string) (string, error) {
	s.calls++
	return s.text, s.err
}

// TestGuardModelPassThrough 成功时原样返回。
func TestGuardModelPassThrough(t *testing.T) {
	s := &stubModel{text: "  # Title\nbody\n"}
	g := GuardModel("mock", s, true)
	got, err := g.Generate(context.Background(), "llama3.2", "p")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != s.text {
		t.Fatalf("response modified: %q", got)
	}
}

// TestGuardModelWrapsErrors 覆盖统一包装的各分支。
func TestGuardModelWrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	cases := []struct {
		name      string
		model     string
		prompt    string
		stub      *stubModel
		want      error
		wantCalls int
	}{
		{"transport", "m", "p", &stubModel{err: boom}, boom, 1},
		{"blank response rejected", "m", "p", &stubModel{text: " \n\t"}, ErrResponseInvalid, 1},
		{"empty prompt", "m", "", &stubModel{text: "x"}, ErrInvalidInput, 0},
		{"empty model", " ", "p", &stubModel{text: "x"}, ErrInvalidInput, 0},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GuardModel("ollama", tt.stub, true).Generate(context.Background(), tt.model, tt.prompt)
			var mie *ModelInvocationError
			if !errors.As(err, &mie) {
				t.Fatalf("want ModelInvocationError got %T %v", err, err)
			}
			if mie.Provider != "ollama" {
				t.Fatalf("provider not recorded: %+v", mie)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("want cause %v got %v", tt.want, err)
			}
			if tt.stub.calls != tt.wantCalls {
				t.Fatalf("calls=%d want %d", tt.stub.calls, tt.wantCalls)
			}
		})
	}
}

// TestGuardModelBlankResponseDefault 默认不拦截空白响应，原样返回。
func TestGuardModelBlankResponseDefault(t *testing.T) {
	for _, text := range []string{"", "\n", " \n\t"} {
		s := &stubModel{text: text}
		got, err := GuardModel("ollama", s, false).Generate(context.Background(), "m", "p")
		if err != nil {
			t.Fatalf("%q: unexpected err: %v", text, err)
		}
		if got != text {
			t.Fatalf("response modified: %q want %q", got, text)
		}
	}
}

// TestGuardModelRewrapEnablesReject 外层开启空白拦截时覆盖内层设置。
func TestGuardModelRewrapEnablesReject(t *testing.T) {
	g := GuardModel("ollama", GuardModel("ollama", &stubModel{text: "\n"}, false), true)
	if _, err := g.Generate(context.Background(), "m", "p"); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("want ErrResponseInvalid got %v", err)
	}
}

// TestGuardModelNoDoubleWrap 已是 ModelInvocationError 时不重复包装。
func TestGuardModelNoDoubleWrap(t *testing.T) {
	inner := &ModelInvocationError{Provider: "x", Model: "m", Err: ErrRateLimited}
	g := GuardModel("ollama", GuardModel("x", &stubModel{err: inner}, false), false)
	_, err := g.Generate(context.Background(), "m", "p")
	if err != inner {
		t.Fatalf("expected original error, got %v", err)
	}
}

// TestErrorTypes 验证错误类型的 Unwrap 与消息。
func TestErrorTypes(t *testing.T) {
	cause := errors.New("disk full")
	errs := []error{
		&DocumentNotFoundError{Path: "a.md", Err: cause},
		&DocumentReadError{Path: "a.md", Err: cause},
		&ModelInvocationError{Model: "m", Err: cause},
		&DocumentWriteError{Path: "a.md", Content: "new", Err: cause},
	}
	for _, e := range errs {
		if !errors.Is(e, cause) {
			t.Fatalf("%T 未透出原因", e)
		}
		if e.Error() == "" {
			t.Fatalf("%T 消息为空", e)
		}
	}
}

func TestDigestAndTemplateID(t *testing.T) {
	if Digest([]byte("a")) == Digest([]byte("b")) {
		t.Fatal("digest collision")
	}
	if Digest(nil) != Digest([]byte{}) {
		t.Fatal("nil/empty digest differ")
	}
	if id := (Template{Name: "update", Version: "v1"}).ID(); id != "update@v1" {
		t.Fatalf("id=%q", id)
	}
	if id := (Template{Name: "update"}).ID(); id != "update" {
		t.Fatalf("id=%q", id)
	}
}
