package httpapi

// Result 统一响应信封
// - code: 2000 成功，其它为失败
// - type: 'success' | 'error'
// - message: 面向用户的文案（越南语错误提示原样透传）
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess     = 2000
	ResultError       = -1
	ResultBusy        = 40900
	ResultRateLimited = 42900
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return FailCode(ResultError, message)
}

func FailCode(code int, message string) Result[any] {
	return Result[any]{Code: code, Type: "error", Message: message, Result: nil}
}
