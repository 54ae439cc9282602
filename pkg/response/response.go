package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stable machine-readable error codes. Clients match on these, not on the
// human-readable message.
const (
	CodeBadRequest         = "bad_request"
	CodeUnauthorized       = "unauthenticated"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeServiceUnavailable = "service_unavailable"
	CodeInternal           = "internal_error"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error is the failure half of the envelope: a stable code, a message, and
// for permission denials the exact missing permission tags.
type Error struct {
	Code               string   `json:"code"`
	Message            string   `json:"message"`
	MissingPermissions []string `json:"missing_permissions,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: &Error{Code: CodeBadRequest, Message: msg}})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: &Error{Code: CodeUnauthorized, Message: msg}})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: &Error{Code: CodeForbidden, Message: msg}})
}

// ForbiddenMissing sends 403 listing the permissions the caller lacks.
// Missing is empty for generic denials, which omits the field.
func ForbiddenMissing(c *gin.Context, msg string, missing []string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: &Error{
		Code:               CodeForbidden,
		Message:            msg,
		MissingPermissions: missing,
	}})
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: &Error{Code: CodeNotFound, Message: msg}})
}

// Conflict sends 409.
func Conflict(c *gin.Context, msg string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: &Error{Code: CodeConflict, Message: msg}})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, msg string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: &Error{Code: CodeServiceUnavailable, Message: msg}})
}

// Internal sends 500.
func Internal(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: &Error{Code: CodeInternal, Message: msg}})
}
