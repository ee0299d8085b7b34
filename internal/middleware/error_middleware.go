package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/transport/httpdto"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Ctx(c.Request.Context()).Errorf("request error: %s", err.Error())
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
	}
}
