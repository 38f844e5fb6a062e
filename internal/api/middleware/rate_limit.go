package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RyouhaWH/turnos-app-sub002/pkg/redis"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// 按操作人（未认证时按 IP）+ 路由计数；rdb 为 nil 时降级放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if uid := c.GetString("user_id"); uid != "" {
			subject = uid
		}
		key := fmt.Sprintf("%s:%s", subject, c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			logger.Warn("限流检查失败，已放行", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
