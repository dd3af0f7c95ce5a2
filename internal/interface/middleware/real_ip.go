package middleware

import (
	"github.com/gin-gonic/gin"
)

// RealIP stores the client IP under "real_ip". Forwarding headers
// (X-Forwarded-For, CF-Connecting-IP) are only honoured through the engine's
// trusted proxy and trusted platform settings, so a client cannot pick its
// own rate-limit bucket.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", c.ClientIP())
		c.Next()
	}
}
