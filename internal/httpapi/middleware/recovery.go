package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/alira/internal/common"
	"go.uber.org/zap"
)

// Recovery turns panics into a JSON 500. http.ErrAbortHandler is passed on
// to net/http, which drops the connection so a streaming client sees an
// interrupted body instead of a clean end.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("request_id", RequestIDFrom(c)),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				// headers are gone; the best we can do is cut the connection
				panic(http.ErrAbortHandler)
			}
			common.Fail(c, http.StatusInternalServerError, "internal server error")
		}()
		c.Next()
	}
}
