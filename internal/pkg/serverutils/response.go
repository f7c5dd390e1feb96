package serverutils

type BaseResponse[T any] struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) BaseResponse[any] {
	return BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// ErrorResponseWithCode carries a machine readable error code next to the HTTP status.
func ErrorResponseWithCode(code int, errorCode, message string) BaseResponse[any] {
	return BaseResponse[any]{
		Success:   false,
		Code:      code,
		Message:   message,
		ErrorCode: errorCode,
	}
}
