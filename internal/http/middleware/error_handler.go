package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
)

// ErrorHandler превращает ошибку, добавленную через c.Error, в JSON-ответ.
// AppError отдаёт свой код и сообщение; всё остальное маскируется как внутренняя ошибка.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		fields := logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}

		appErr, ok := apperror.As(err)
		if !ok {
			logger.Entry(fields).Error("Request error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": apperror.ErrCodeInternal})
			return
		}

		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if status >= http.StatusInternalServerError {
			logger.Entry(fields).Error("Request error")
		} else {
			logger.Entry(fields).Debug("Request rejected")
		}

		body := gin.H{"error": appErr.Message, "code": appErr.Code}
		if appErr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(appErr.RetryAfter))
			body["retry_after"] = appErr.RetryAfter
		}
		c.JSON(status, body)
	}
}
