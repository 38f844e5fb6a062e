package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RyouhaWH/turnos-app-sub002/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// maxBytes<=0 时不限制
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		var mbe *http.MaxBytesError
		for _, err := range c.Errors {
			if errors.As(err.Err, &mbe) {
				response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
				return
			}
		}
	}
}
