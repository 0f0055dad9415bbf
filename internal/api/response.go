package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/model"
)

// Response 统一响应格式
type Response struct {
	Code    int         `json:"code"`    // 状态码: 0 表示成功,非 0 表示失败
	Message string      `json:"message"` // 响应消息
	Data    interface{} `json:"data"`    // 响应数据
}

// ErrorResponse 错误响应格式
type ErrorResponse struct {
	Code    int                `json:"code"`             // 错误码
	Message string             `json:"message"`          // 错误消息
	Detail  string             `json:"detail,omitempty"` // 错误详情(可选)
	Errors  []model.FieldError `json:"errors,omitempty"` // 字段校验错误
}

// ListResponse 列表响应
type ListResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// List 列表响应
func List(c *gin.Context, data interface{}, total int) {
	c.JSON(http.StatusOK, ListResponse{
		Code:    0,
		Message: "success",
		Data:    data,
		Total:   total,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string, detail string) {
	statusCode := http.StatusInternalServerError
	if code >= 400 && code < 600 {
		statusCode = code
	}

	c.JSON(statusCode, ErrorResponse{
		Code:    code,
		Message: message,
		Detail:  detail,
	})
}

// ValidationFailed 校验失败响应,返回所有字段错误
func ValidationFailed(c *gin.Context, verr *model.ValidationError) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "validation failed",
		Detail:  verr.Error(),
		Errors:  verr.Errors,
	})
}
