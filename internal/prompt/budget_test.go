package prompt

import (
	"strings"
	"testing"
)

// TestMakeEstimator 覆盖默认与自定义比率。
func TestMakeEstimator(t *testing.T) {
	est := MakeEstimator(0)
	if est("") != 0 {
		t.Fatalf("empty string should be 0")
	}
	if est("abcd") != 1 || est("abcde") != 2 {
		t.Fatalf("default ratio 4 expected")
	}
	if MakeEstimator(2)("abcde") != 3 {
		t.Fatalf("custom ratio not applied")
	}
}

// TestOverBudget 限额判断。
func TestOverBudget(t *testing.T) {
	p := strings.Repeat("x", 40)
	if n, over := OverBudget(p, 4, 0); n != 10 || over {
		t.Fatalf("unlimited: %d %v", n, over)
	}
	if _, over := OverBudget(p, 4, 10); over {
		t.Fatalf("10 <= 10 should fit")
	}
	if _, over := OverBudget(p, 4, 9); !over {
		t.Fatalf("10 > 9 should be over")
	}
}
