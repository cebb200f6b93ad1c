package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
)

// ErrorCode defines standard error codes for programmatic handling
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"        // 400 - Malformed request
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"   // 400 - Validation failed
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"          // 404 - Resource not found
	ErrCodePrecondition ErrorCode = "PRECONDITION_ERROR" // 409 - Operation not allowed in current state
	ErrCodeConflict     ErrorCode = "CONFLICT"           // 409 - Resource conflict

	// Server errors (5xx)
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR" // 500 - Unexpected error
	ErrCodeIO       ErrorCode = "IO_ERROR"       // 500 - Local file system failure
	ErrCodeRemote   ErrorCode = "REMOTE_ERROR"   // 502 - Mirror provider failure
)

// ErrorResponse is the standard error response structure
type ErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`    // Machine-readable error code
		Message string    `json:"message"` // Human-readable error message
	} `json:"error"`
}

// DataResponse wraps a single resource or object response
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// ListResponse wraps a collection of resources
type ListResponse[T any] struct {
	Data []T `json:"data"`
}

// RespondData sends a successful response with a single data object
// Status: 200 OK
func RespondData[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, DataResponse[T]{Data: data})
}

// RespondCreated sends a 201 Created response with the created resource
// Also sets the Location header if path is provided
func RespondCreated[T any](c *gin.Context, data T, locationPath string) {
	if locationPath != "" {
		c.Header("Location", locationPath)
	}
	c.JSON(http.StatusCreated, DataResponse[T]{Data: data})
}

// RespondList sends a successful response with a list of items
// Status: 200 OK
func RespondList[T any](c *gin.Context, data []T) {
	// Ensure empty array instead of null
	if data == nil {
		data = []T{}
	}
	c.JSON(http.StatusOK, ListResponse[T]{Data: data})
}

// RespondNoContent sends a 204 No Content response
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondAccepted sends a 202 Accepted response for async operations
func RespondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, DataResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, code ErrorCode, message string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	c.JSON(status, resp)
}

// RespondBadRequest sends a 400 Bad Request error
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// RespondNotFound sends a 404 Not Found error
func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// RespondInternalError sends a 500 Internal Server Error
func RespondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, ErrCodeInternal, message)
}

// RespondAppError maps an error's kind to its status and code
func RespondAppError(c *gin.Context, err error) {
	status, code := statusForKind(apperrors.KindOf(err))
	if status >= http.StatusInternalServerError {
		apiLogger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	respondError(c, status, code, err.Error())
}

func statusForKind(kind apperrors.Kind) (int, ErrorCode) {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest, ErrCodeValidation
	case apperrors.KindPrecondition:
		return http.StatusConflict, ErrCodePrecondition
	case apperrors.KindConflict:
		return http.StatusConflict, ErrCodeConflict
	case apperrors.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case apperrors.KindIO:
		return http.StatusInternalServerError, ErrCodeIO
	case apperrors.KindRemote:
		return http.StatusBadGateway, ErrCodeRemote
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
