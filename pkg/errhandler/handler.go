package errhandler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ErrorType 错误严重程度
type ErrorType int

const (
	// ErrorTypeFatal 致命错误（需要断开连接）
	ErrorTypeFatal ErrorType = iota
	// ErrorTypeRecoverable 可恢复错误（会话继续）
	ErrorTypeRecoverable
	// ErrorTypeTransient 临时错误（短暂故障，会自动恢复）
	ErrorTypeTransient
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeFatal:
		return "fatal"
	case ErrorTypeRecoverable:
		return "recoverable"
	case ErrorTypeTransient:
		return "transient"
	}
	return "unknown"
}

// Kind 错误所属的失败类别
type Kind string

const (
	KindConnection  Kind = "connection"
	KindGeneration  Kind = "generation"
	KindSynthesis   Kind = "synthesis"
	KindRateLimited Kind = "rate_limited"
	KindValidation  Kind = "validation"
	KindInternal    Kind = "internal"
)

// Error 统一错误结构
type Error struct {
	Type    ErrorType
	Kind    Kind
	Service string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Service, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf 返回错误链中第一个统一错误的类别，没有则为 KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus 错误类别到 HTTP 状态码的映射
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

var (
	fatalKeywords = []string{
		"unauthorized",
		"authentication failed",
		"invalid credentials",
		"api key invalid",
		"api key not valid",
		"api key expired",
		"account suspended",
		"account disabled",
	}
	transientKeywords = []string{
		"timeout",
		"connection reset",
		"connection refused",
		"network",
		"temporary",
		"retry",
	}
	rateLimitKeywords = []string{
		"rate limit",
		"too many requests",
		"429",
		"quota",
		"resource_exhausted",
		"concurrent",
	}
)

func containsAny(err error, keywords []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range keywords {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

// Handler 错误处理器
type Handler struct {
	logger *zap.Logger
}

// NewHandler 创建错误处理器
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

// IsFatal 判断是否是致命错误
func (h *Handler) IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrorTypeFatal
	}
	return containsAny(err, fatalKeywords)
}

// IsRateLimitError 判断是否是限流/配额超限错误
func (h *Handler) IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if KindOf(err) == KindRateLimited {
		return true
	}
	return containsAny(err, rateLimitKeywords)
}

// Classify 分类错误，已分类的错误原样返回
func (h *Handler) Classify(err error, service string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	classified := &Error{
		Type:    ErrorTypeRecoverable,
		Kind:    KindInternal,
		Service: service,
		Message: err.Error(),
		Err:     err,
	}
	switch {
	case h.IsRateLimitError(err):
		classified.Type = ErrorTypeTransient
		classified.Kind = KindRateLimited
	case h.IsFatal(err):
		classified.Type = ErrorTypeFatal
	case containsAny(err, transientKeywords):
		classified.Type = ErrorTypeTransient
	}
	return classified
}

// HandleError 分类并按严重程度记录日志
func (h *Handler) HandleError(err error, service string) error {
	if err == nil {
		return nil
	}
	classified := h.Classify(err, service)
	fields := []zap.Field{
		zap.String("service", service),
		zap.String("kind", string(classified.Kind)),
		zap.String("message", classified.Message),
		zap.Error(err),
	}
	switch classified.Type {
	case ErrorTypeFatal:
		h.logger.Error("fatal error", fields...)
	case ErrorTypeRecoverable:
		h.logger.Warn("recoverable error", fields...)
	case ErrorTypeTransient:
		h.logger.Info("transient error", fields...)
	}
	return classified
}

// NewConnectionError 外部服务连接失败，会话无法继续
func NewConnectionError(service, message string, err error) *Error {
	return &Error{Type: ErrorTypeFatal, Kind: KindConnection, Service: service, Message: message, Err: err}
}

// NewGenerationError 回复生成失败
func NewGenerationError(service, message string, err error) *Error {
	return &Error{Type: ErrorTypeRecoverable, Kind: KindGeneration, Service: service, Message: message, Err: err}
}

// NewSynthesisError 语音合成失败
func NewSynthesisError(service, message string, err error) *Error {
	return &Error{Type: ErrorTypeRecoverable, Kind: KindSynthesis, Service: service, Message: message, Err: err}
}

// NewRateLimitedError 上游限流或配额耗尽
func NewRateLimitedError(service, message string, err error) *Error {
	return &Error{Type: ErrorTypeTransient, Kind: KindRateLimited, Service: service, Message: message, Err: err}
}

// NewValidationError 请求参数不合法
func NewValidationError(service, message string) *Error {
	return &Error{Type: ErrorTypeRecoverable, Kind: KindValidation, Service: service, Message: message}
}
