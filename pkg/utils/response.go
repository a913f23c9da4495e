package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CorrelationIDKey is the gin context key the request logger stores the
// request id under.
const CorrelationIDKey = "correlation_id"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// SuccessResponse wraps every 2xx payload. Message explains degraded
// results such as estimated boards or fallback snapshots.
type SuccessResponse struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// SendError writes an error envelope and aborts the handler chain.
func SendError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:         http.StatusText(statusCode),
		Message:       message,
		Code:          statusCode,
		CorrelationID: c.GetString(CorrelationIDKey),
	})
}

func SendInternalError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, message)
}

func SendBadRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, message)
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, message)
}

// SendServiceUnavailable reports a backing dependency that is down.
func SendServiceUnavailable(c *gin.Context, message string) {
	SendError(c, http.StatusServiceUnavailable, message)
}

func SendSuccess(c *gin.Context, data interface{}) {
	send(c, http.StatusOK, data, "")
}

func SendSuccessWithMessage(c *gin.Context, data interface{}, message string) {
	send(c, http.StatusOK, data, message)
}

func SendCreated(c *gin.Context, data interface{}) {
	send(c, http.StatusCreated, data, "")
}

func send(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, SuccessResponse{Data: data, Message: message})
}
