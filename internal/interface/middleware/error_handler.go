package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/pkg/apperror"
	"github.com/oksasatya/lessonhub/pkg/response"
)

const internalMessage = "internal server error"

// ErrorHandler renders the last error a handler recorded with response.Fail.
// Unclassified errors become a generic 500; the cause is only exposed when
// dev is true.
func ErrorHandler(logger *logrus.Logger, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		fields := logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}

		ae, ok := apperror.As(err)
		if !ok || ae.Kind == apperror.KindInternal {
			logger.WithFields(fields).WithError(err).Error("unhandled error")
			var detail any
			if dev {
				detail = err.Error()
			}
			response.Error[any](c, http.StatusInternalServerError, internalMessage, detail)
			return
		}

		entry := logger.WithFields(fields).WithField("kind", ae.Kind.String())
		if ae.Err != nil {
			entry = entry.WithError(ae.Err)
		}
		if ae.Kind == apperror.KindUpstream {
			entry.Warn("upstream failure")
		} else {
			entry.Debug("request rejected")
		}
		response.Error[any](c, ae.Kind.Status(), ae.Message, ae.Details)
	}
}

// Recovery turns a panic into the same generic 500 envelope.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"panic":      rec,
		}).Error("panic recovered")
		response.Error[any](c, http.StatusInternalServerError, internalMessage, nil)
	})
}
