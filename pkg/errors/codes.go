package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeMessageQueue       ErrorCode = "COMMON_017"
)

// Aliases
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// AI/ML Error Codes
const (
	ErrCodeAIModelNotAvailable ErrorCode = "AI_001"
	ErrCodeAIInferenceFailed   ErrorCode = "AI_002"
	ErrCodeTokenizerNotLoaded  ErrorCode = "AI_003"
	ErrCodeAIInputInvalid      ErrorCode = "AI_004"
)

// NER pipeline Error Codes
const (
	ErrCodeNormalizerUnavailable ErrorCode = "NER_001"
	ErrCodeSplitterFailed        ErrorCode = "NER_002"
	ErrCodeInvalidTagSequence    ErrorCode = "NER_003"
	ErrCodeDocumentTooLarge      ErrorCode = "NER_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessageQueue:       http.StatusInternalServerError,

	ErrCodeAIModelNotAvailable: http.StatusServiceUnavailable,
	ErrCodeAIInferenceFailed:   http.StatusBadGateway,
	ErrCodeTokenizerNotLoaded:  http.StatusServiceUnavailable,
	ErrCodeAIInputInvalid:      http.StatusBadRequest,

	ErrCodeNormalizerUnavailable: http.StatusServiceUnavailable,
	ErrCodeSplitterFailed:        http.StatusBadGateway,
	ErrCodeInvalidTagSequence:    http.StatusBadGateway,
	ErrCodeDocumentTooLarge:      http.StatusRequestEntityTooLarge,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "authentication required",
	ErrCodeForbidden:          "permission denied",
	ErrCodeNotFound:           "resource not found",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeMessageQueue:       "message queue error",

	ErrCodeAIModelNotAvailable: "tagging model not available",
	ErrCodeAIInferenceFailed:   "tagging model inference failed",
	ErrCodeTokenizerNotLoaded:  "tokenizer not loaded",
	ErrCodeAIInputInvalid:      "invalid input for tagging model",

	ErrCodeNormalizerUnavailable: "word segmentation service unavailable",
	ErrCodeSplitterFailed:        "patient splitter failed",
	ErrCodeInvalidTagSequence:    "model returned an invalid tag sequence",
	ErrCodeDocumentTooLarge:      "document exceeds the maximum size",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode ("AI", "NER", ...).
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
