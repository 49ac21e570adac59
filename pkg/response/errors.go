package response

import "net/http"

// 业务错误码
const (
	// 失败
	Fail ResponseCode = 0
	// 参数解析错误
	ParseError ResponseCode = 1
	// 参数错误
	InvalidParameter ResponseCode = 2
	// 未登录或令牌无效
	Unauthorized ResponseCode = 3
	// 无权限
	Forbidden ResponseCode = 4
	// 资源不存在
	NotFound ResponseCode = 5
	// 关系已存在(收藏/购物车/关注)
	AlreadyExists ResponseCode = 6
	// 关系不存在(取消收藏/移出购物车/取消关注)
	RelationNotFound ResponseCode = 7
)

// 错误码对应的默认 HTTP 状态
var defaultStatus = map[ResponseCode]int{
	Fail:             http.StatusInternalServerError,
	ParseError:       http.StatusBadRequest,
	InvalidParameter: http.StatusBadRequest,
	Unauthorized:     http.StatusUnauthorized,
	Forbidden:        http.StatusForbidden,
	NotFound:         http.StatusNotFound,
	AlreadyExists:    http.StatusBadRequest,
	RelationNotFound: http.StatusBadRequest,
}

type BusinessError struct {
	Code   ResponseCode
	Msg    string
	Err    error
	Status int // HTTP 状态码, 为 0 时按 Code 推导
}

// Error 实现 error 接口
func (be *BusinessError) Error() string {
	if be.Err != nil {
		return be.Msg + ": " + be.Err.Error()
	}
	return be.Msg
}

// Unwrap 支持 errors.Is / errors.As 穿透到底层错误
func (be *BusinessError) Unwrap() error {
	return be.Err
}

// HTTPStatus 返回该错误应使用的 HTTP 状态码
func (be *BusinessError) HTTPStatus() int {
	if be.Status != 0 {
		return be.Status
	}
	if status, ok := defaultStatus[be.Code]; ok {
		return status
	}
	return http.StatusBadRequest
}

type ErrorOption func(*BusinessError)

func WithErrorCode(code ResponseCode) ErrorOption {
	return func(be *BusinessError) {
		be.Code = code
	}
}

func WithErrorMessage(msg string) ErrorOption {
	return func(be *BusinessError) {
		be.Msg = msg
	}
}

func WithError(err error) ErrorOption {
	return func(be *BusinessError) {
		be.Err = err
	}
}

func WithStatus(status int) ErrorOption {
	return func(be *BusinessError) {
		be.Status = status
	}
}

func NewBusinessError(opts ...ErrorOption) *BusinessError {
	err := &BusinessError{
		Code: Fail,
		Msg:  "business error",
		Err:  nil,
	}
	for _, opt := range opts {
		opt(err)
	}
	return err
}
