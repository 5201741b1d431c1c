// Package response writes the uniform JSON error body shared by handlers and
// middleware:
//
//	{"status":"error","error":{"code":422,"message":"...","details":{"field":["..."]}}}
//
// details is present only for validation failures.
package response

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// Messages shared across handlers
const (
	MsgValidationFailed   = "Validation failed"
	MsgInvalidCredentials = "Invalid credentials"
	MsgUnauthenticated    = "Unauthenticated."
	MsgInternal           = "Internal server error"
)

// ErrorDetail is the inner error object
type ErrorDetail struct {
	Code    int                 `json:"code"`              // Mirrors the HTTP status
	Message string              `json:"message"`           // Human readable summary
	Details map[string][]string `json:"details,omitempty"` // Field level messages, validation only
}

// ErrorBody is the uniform error envelope
type ErrorBody struct {
	Status string      `json:"status"` // Always "error"
	Error  ErrorDetail `json:"error"`  // Error detail
}

// NewErrorBody builds the envelope for code and message
func NewErrorBody(code int, message string, details map[string][]string) ErrorBody {
	if len(details) == 0 {
		details = nil
	}
	return ErrorBody{Status: "error", Error: ErrorDetail{Code: code, Message: message, Details: details}}
}

// Error writes an error body and stops the handler chain
func Error(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, NewErrorBody(code, message, nil))
}

// Validation writes a 422 with field level details
func Validation(c *gin.Context, message string, details map[string][]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, NewErrorBody(http.StatusUnprocessableEntity, message, details))
}

// Internal writes a 500 without exposing the cause
func Internal(c *gin.Context) {
	Error(c, http.StatusInternalServerError, MsgInternal)
}
