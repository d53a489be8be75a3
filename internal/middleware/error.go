package middleware

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/logger"
)

// ErrorHandler converts errors attached to the Gin context, and panics raised
// by later handlers, into the JSON error envelope. AppErrors keep their code
// and message; anything else becomes a generic internal error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Get().Errorw("panic recovered",
					"panic", fmt.Sprint(r),
					"request_id", RequestID(c),
					"path", c.Request.URL.Path,
				)
				if !c.Writer.Written() {
					abortWithError(c, apperrors.ErrInternalServer)
				}
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			logger.Get().Errorw("unexpected error",
				"error", err.Error(),
				"request_id", RequestID(c),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			abortWithError(c, apperrors.ErrInternalServer)
			return
		}

		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"request_id", RequestID(c),
				"path", c.Request.URL.Path,
			)
		}
		abortWithError(c, appErr)
	}
}
