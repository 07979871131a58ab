package response

import (
	"errors"
	"net/http"

	"github.com/code-100-precent/maitri/pkg/errhandler"
	"github.com/gin-gonic/gin"
)

// ErrorBody 错误响应体
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Success 以 200 返回数据
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Fail 返回指定状态码的错误
func Fail(c *gin.Context, status int, title, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: title, Message: message})
}

// AbortWithError 按错误类别映射状态码和文案。verbose 为 true 时 500 错误带上原始信息
func AbortWithError(c *gin.Context, err error, verbose bool) {
	status := errhandler.HTTPStatus(err)
	switch errhandler.KindOf(err) {
	case errhandler.KindValidation:
		Fail(c, status, "Validation error", validationMessage(err))
	case errhandler.KindRateLimited:
		Fail(c, status, "Rate limit exceeded", "Too many requests. Please wait a moment and try again.")
	case errhandler.KindGeneration:
		message := "There was an issue with the AI service. Please try again later."
		if verbose {
			message = err.Error()
		}
		Fail(c, status, "AI service error", message)
	default:
		message := "Something went wrong. Please try again later."
		if verbose {
			message = err.Error()
		}
		Fail(c, status, "Internal server error", message)
	}
}

// NotFound 未知路由
func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, "Not found",
		"The requested endpoint "+c.Request.Method+" "+c.Request.URL.Path+" does not exist")
}

func validationMessage(err error) string {
	var e *errhandler.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
