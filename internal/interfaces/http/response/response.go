package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码分段
// 751xxx 请求参数错误
// 752xxx 资源不存在
// 753xxx 捕获管线错误
// 759xxx 内部错误
const (
	CodeInvalidParam       = 751001
	CodeInvalidPlatform    = 751002
	CodeInvalidFormat      = 751003
	CodeConversationMissed = 752001
	CodeNoActiveConv       = 752002
	CodeRescanFailed       = 753001
	CodeAuthUnavailable    = 753002
	CodeInternal           = 759001
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
	})
}

// ErrorWithDetail 带详情的错误响应
func ErrorWithDetail(c *gin.Context, httpCode int, errCode int, message, detail string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
		Detail:  detail,
	})
}
