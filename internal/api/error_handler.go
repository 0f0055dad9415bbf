package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/model"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
// 处理器通过 c.Error 上报且尚未写响应的错误在这里统一输出
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		handleServiceError(c, c.Errors.Last().Err)
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// handleServiceError 将服务层错误映射为 HTTP 状态码
func handleServiceError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
		return
	}

	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationFailed(c, verr)
	case errors.Is(err, model.ErrClaimNotFound):
		Error(c, http.StatusNotFound, "claim not found", err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		Error(c, http.StatusConflict, "invalid status transition", err.Error())
	case errors.Is(err, model.ErrInvalidStatus):
		Error(c, http.StatusBadRequest, "invalid status", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal server error", err.Error())
	}
}
