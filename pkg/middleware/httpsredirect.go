package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTPSRedirect は平文HTTPで届いたリクエストをHTTPSへリダイレクトする
// Ginミドルウェアを返す。TLS終端はエッジレイヤーの責務なので、
// 判定には X-Forwarded-Proto を使う。enabled が偽（開発モード）のときは
// 何もしない。
func HTTPSRedirect(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enabled && c.GetHeader("X-Forwarded-Proto") != "https" {
			target := fmt.Sprintf("https://%s%s", c.Request.Host, c.Request.RequestURI)
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}
