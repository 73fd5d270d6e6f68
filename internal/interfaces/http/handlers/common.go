package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/internal/interfaces/http/middleware"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success        bool    `json:"success"`
	Error          string  `json:"error"`
	ErrorCode      string  `json:"error_code,omitempty"`
	ProcessingTime float64 `json:"processing_time"`
	RequestID      string  `json:"request_id,omitempty"`
}

func elapsed(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// writeAppError maps application errors to HTTP status codes.  Client errors
// carry their message; server errors expose only the code's default message.
func writeAppError(c *gin.Context, start time.Time, err error) {
	resp := ErrorResponse{
		ProcessingTime: elapsed(start),
		RequestID:      middleware.GetRequestID(c),
	}

	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		err = errors.New(errors.ErrCodeDocumentTooLarge, "request body is too large")
	}

	status := http.StatusInternalServerError
	var ae *errors.AppError
	switch {
	case stderrors.As(err, &ae):
		status = ae.HTTPStatus()
		resp.ErrorCode = string(ae.Code)
		resp.Error = errors.DefaultMessageForCode(ae.Code)
		if errors.IsClientError(ae.Code) {
			resp.Error = ae.Message
			if ae.Detail != "" {
				resp.Error += ": " + ae.Detail
			}
		}
	default:
		resp.ErrorCode = string(errors.ErrCodeInternal)
		resp.Error = errors.DefaultMessageForCode(errors.ErrCodeInternal)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the request body into dst and writes a 400 on failure.
func bindJSON(c *gin.Context, start time.Time, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeAppError(c, start, err)
			return false
		}
		writeAppError(c, start, errors.New(errors.ErrCodeBadRequest, "invalid request body").WithDetail(err.Error()))
		return false
	}
	return true
}

//Personal.AI order the ending
