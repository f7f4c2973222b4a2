package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response standard response structure
type Response struct {
	Code      ResponseCode `json:"code"`
	Message   string       `json:"message"`
	Data      interface{}  `json:"data,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// SuccessResponse returns success response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      CodeSuccess,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// ErrorResponse returns error response with an explicit HTTP status
func ErrorResponse(c *gin.Context, httpCode int, code ResponseCode, message string) {
	c.JSON(httpCode, Response{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

// AppErrorResponse renders an application error, mapping its code to an
// HTTP status the load-test drivers expect (200/404/409/429).
func AppErrorResponse(c *gin.Context, err error) {
	code := GetErrorCode(err)
	ErrorResponse(c, HTTPStatus(code), code, GetErrorMessage(err))
}

// HTTPStatus maps a response code to its HTTP rendering.
func HTTPStatus(code ResponseCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeProductNotFound, CodeTicketNotFound, CodeOrderNotFound:
		return http.StatusNotFound
	case CodeAlreadyQueued, CodeStockExhausted, CodeSaleWindowOpen:
		return http.StatusConflict
	case CodeOrderBusy, CodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
