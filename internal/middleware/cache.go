package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// NoStore forbids caching of responses that carry credentials or profile data.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}

// CacheControl lets shared caches keep public responses for maxAgeSeconds.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAgeSeconds))
		c.Next()
	}
}
