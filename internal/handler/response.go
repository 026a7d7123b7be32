package handler

import (
	"errors"
	"net/http"

	"github.com/blues/cps/internal/capability"
	"github.com/blues/cps/internal/workflow"
	"github.com/gin-gonic/gin"
)

// Response 统一响应格式
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// statusForError 按错误分类映射HTTP状态码；
// 重复事件不算失败，调用方单独处理
func statusForError(err error) int {
	var ve *capability.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	var ce *workflow.ConsistencyError
	if errors.As(err, &ce) {
		return http.StatusConflict
	}
	var we *workflow.WalletValidationError
	if errors.As(err, &we) {
		return http.StatusUnprocessableEntity
	}
	if capability.IsTransient(err) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
