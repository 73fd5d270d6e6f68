package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// abortWithError stops the chain with the API error envelope used by the
// handlers, so clients parse middleware rejections the same way.
func abortWithError(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), gin.H{
		"success":    false,
		"request_id": GetRequestID(c),
		"error":      err.Message,
		"error_code": string(err.Code),
	})
}

//Personal.AI order the ending
