package response

import (
	"errors"
	"net/http"
	"time"

	"settlement-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxRequestID is the gin context key holding the request correlation id.
const CtxRequestID = "request_id"

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	success(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	success(c, http.StatusCreated, data)
}

// Error sends an error response. *apperror.AppError values keep their code
// and status; anything else becomes an opaque 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorResponse{
			ErrorCode: appErr.Code,
			Message:   appErr.Message,
			RequestID: RequestID(c),
			Timestamp: now(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		ErrorCode: "SYS_000",
		Message:   "Internal server error",
		RequestID: RequestID(c),
		Timestamp: now(),
	})
}

// RequestID returns the request id stored on the context, generating and
// storing one when absent so every envelope of a request agrees.
func RequestID(c *gin.Context) string {
	if id, exists := c.Get(CtxRequestID); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	id := uuid.New().String()
	c.Set(CtxRequestID, id)
	return id
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: RequestID(c),
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
