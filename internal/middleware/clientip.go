package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetIP extracts the client IP recorded with clicks: the first X-Forwarded-For
// entry, then X-Real-IP, then the connection address. The headers are taken as
// sent; rate limiting uses c.ClientIP instead.
func GetIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	return c.RemoteIP()
}

// ClientIP is GetIP restricted to parseable addresses; nil when none is known
func ClientIP(c *gin.Context) *string {
	ip := GetIP(c)
	if net.ParseIP(ip) == nil {
		return nil
	}
	return &ip
}
