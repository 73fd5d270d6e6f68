package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Recovery turns a handler panic into a 500 JSON response and logs the
// stack.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					logging.String("panic", fmt.Sprint(r)),
					logging.String("path", c.Request.URL.Path),
					logging.String(logging.FieldRequestID, GetRequestID(c)),
					logging.String("stack", string(debug.Stack())))
				abortWithError(c, errors.New(errors.ErrCodeInternal, "internal server error"))
			}
		}()
		c.Next()
	}
}

//Personal.AI order the ending
