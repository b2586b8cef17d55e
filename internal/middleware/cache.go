package middleware

import "github.com/gin-gonic/gin"

// CacheHeader tells clients whether a listing was served from the cache.
const CacheHeader = "X-Cache"

// SetCacheHit records on the response whether the payload came from the cache.
// Call it before the body is written.
func SetCacheHit(c *gin.Context, hit bool) {
	if hit {
		c.Header(CacheHeader, "HIT")
		return
	}
	c.Header(CacheHeader, "MISS")
}
