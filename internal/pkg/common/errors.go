package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorBody API 錯誤響應結構
type ErrorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	UserError bool   `json:"user_error,omitempty"`
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 輸入驗證錯誤，包含所有不合法的欄位
type ValidationError struct {
	Fields  []string
	Message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{
		Fields:  fields,
		Message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RateLimitError 呼叫頻率超過限制
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// UpstreamError 外部服務失敗
type UpstreamError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s service returned status %d", e.Service, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s service unavailable: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s service unavailable", e.Service)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError 創建外部服務錯誤
func NewUpstreamError(service string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{Service: service, StatusCode: statusCode, Err: err}
}

// ConfigurationError 必要設定缺失
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error for %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("missing required configuration: %s", e.Key)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// 預定義錯誤代碼
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeBodyTooLarge    = "BODY_TOO_LARGE"    // 413
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429
	ErrCodeInternalError   = "INTERNAL_ERROR"    // 500
	ErrCodeUpstreamError   = "UPSTREAM_ERROR"    // 502
	ErrCodeGatewayTimeout  = "GATEWAY_TIMEOUT"   // 504
)

// 預定義錯誤
var (
	ErrUnauthorized   = NewError(ErrCodeUnauthorized, "Unauthorized", http.StatusUnauthorized, nil)
	ErrBodyTooLarge   = NewError(ErrCodeBodyTooLarge, "Request body too large", http.StatusRequestEntityTooLarge, nil)
	ErrInternalError  = NewError(ErrCodeInternalError, "Internal server error", http.StatusInternalServerError, nil)
	ErrGatewayTimeout = NewError(ErrCodeGatewayTimeout, "Request timeout", http.StatusGatewayTimeout, nil)
)

// ErrorStatus 將錯誤轉為 HTTP 狀態碼與響應內容
func ErrorStatus(err error) (int, ErrorBody) {
	var (
		validationErr *ValidationError
		rateErr       *RateLimitError
		upstreamErr   *UpstreamError
		configErr     *ConfigurationError
		customErr     *CustomError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorBody{
			Error:     "Invalid input",
			Detail:    validationErr.Error(),
			UserError: true,
		}
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, ErrorBody{
			Error:     "Too many requests",
			Detail:    fmt.Sprintf("retry after %d seconds", RetryAfterSeconds(rateErr.RetryAfter)),
			UserError: true,
		}
	case errors.As(err, &upstreamErr):
		// 不回傳外部服務原始內容
		return http.StatusBadGateway, ErrorBody{
			Error:  "Upstream service error",
			Detail: upstreamErr.Service,
		}
	case errors.As(err, &configErr):
		return http.StatusInternalServerError, ErrorBody{
			Error: "Server configuration error",
		}
	case errors.As(err, &customErr):
		return customErr.Status, ErrorBody{
			Error:     customErr.Message,
			UserError: customErr.Status >= 400 && customErr.Status < 500,
		}
	default:
		return http.StatusInternalServerError, ErrorBody{
			Error: "Internal server error",
		}
	}
}

// RetryAfterSeconds 無條件進位的秒數，至少 1 秒
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
