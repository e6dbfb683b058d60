package prompt

import "docsync/pkg/contract"

// MakeEstimator 返回一个近似 token 估算器：tokens ≈ ceil(len(utf8_bytes)/bytesPerToken)。
// 当 bytesPerToken<=0 时采用默认 4。
func MakeEstimator(bytesPerToken int) contract.TokenEstimator {
	bpt := bytesPerToken
	if bpt <= 0 {
		bpt = 4
	}
	return func(s string) int {
		n := len(s)
		if n == 0 {
			return 0
		}
		return (n + bpt - 1) / bpt
	}
}

// OverBudget 估算提示词 token 数，并判断是否超过 maxTokens。
// maxTokens<=0 表示不限制。只做判断，不拦截调用。
func OverBudget(p string, bytesPerToken, maxTokens int) (int, bool) {
	n := MakeEstimator(bytesPerToken)(p)
	if maxTokens <= 0 {
		return n, false
	}
	return n, n > maxTokens
}
