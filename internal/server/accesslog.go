package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDKey = "request_id"

// accessLog はリクエストごとに1行のアクセスログを出力するミドルウェア
func accessLog(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set(requestIDKey, requestID)

		c.Next()

		entry := log.WithFields(logrus.Fields{
			requestIDKey: requestID,
			"remote":     c.ClientIP(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"proto":      c.Request.Proto,
			"status":     c.Writer.Status(),
			"bytes":      c.Writer.Size(),
			"latency":    time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		entry.Info("request")
	}
}

// recovery はパニックを500に変換するミドルウェア
// broken pipe はgin側で処理されるのでここには来ない
func recovery(log *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		log.WithFields(logrus.Fields{
			requestIDKey: c.GetString(requestIDKey),
			"path":       c.Request.URL.Path,
			"panic":      rec,
		}).Error("ハンドラでパニックが発生しました")
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
