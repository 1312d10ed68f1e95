package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/预期类错误（例如未登录、参数缺失、资源缺失，流程可降级继续）
// - 5xxx：系统错误（传输层/依赖故障，需要提示用户）
const (
	OK               = 0
	NotAuthenticated = 4001
	InvalidArgument  = 4002
	ResourceMissing  = 4004
	SystemError      = 5000
)
