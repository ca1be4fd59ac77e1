package errcode

// 导出通知中的错误码：
// - 0：成功
// - 4xxx：请求相关，重试无意义（文档已删除等）
// - 5xxx：系统错误（渲染、存储、数据库）
const (
	OK              = 0
	DocumentMissing = 4004
	SystemError     = 5000
	RenderFailed    = 5001
	StorageFailed   = 5002
)
