package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/pkg/logger"
	"github.com/stitts-dev/golf-picks/pkg/utils"
)

// CorrelationHeader carries the request id in and out.
const CorrelationHeader = "X-Correlation-ID"

// RequestLogger tags every request with a correlation id and logs its
// outcome once it completes.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		c.Set(utils.CorrelationIDKey, id)
		c.Header(CorrelationHeader, id)

		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			logger.FieldCorrelationID: id,
			"http_method":             c.Request.Method,
			"http_path":               c.Request.URL.Path,
			"http_user_agent":         c.Request.UserAgent(),
			"status":                  c.Writer.Status(),
			"duration_ms":             time.Since(start).Milliseconds(),
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request completed")
		}
	}
}
