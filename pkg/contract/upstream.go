package contract

// UpstreamError 承载 HTTP 上游错误的最小诊断信息（状态码与简短消息），
// 便于 updater 记录结构化日志字段。
type UpstreamError interface {
	error
	UpstreamStatus() int
	UpstreamMessage() string
}
