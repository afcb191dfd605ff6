package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLog はリクエスト1件ごとに1行のログを出力するGinミドルウェアを返す。
// 出力形式: method path :: status (経過ms) [request_id]
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.RequestURI()

		c.Next()

		log.Printf("%s %s :: %d (%dms) [%s]",
			c.Request.Method, path, c.Writer.Status(),
			time.Since(start).Milliseconds(), GetRequestID(c))
	}
}
