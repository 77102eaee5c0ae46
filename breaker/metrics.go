package breaker

// 指标名称常量
const (
	// MetricRequestsTotal 受保护调用总数
	MetricRequestsTotal = "breaker_requests_total"

	// MetricRejectsTotal 被熔断器拒绝的调用总数
	MetricRejectsTotal = "breaker_rejects_total"

	// MetricFallbacksTotal 走降级路径的调用总数
	MetricFallbacksTotal = "breaker_fallbacks_total"

	// MetricStateChangesTotal 状态转换总数
	MetricStateChangesTotal = "breaker_state_changes_total"

	// MetricCallDuration 受保护调用耗时 (秒)
	MetricCallDuration = "breaker_call_duration_seconds"
)

// 指标标签常量
const (
	LabelService = "service"
	LabelOutcome = "outcome"
	LabelReason  = "reason"
	LabelFrom    = "from_state"
	LabelTo      = "to_state"
)
