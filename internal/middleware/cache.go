package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/pkg/middleware/requestid"
)

const (
	responseMetaKey  = "response_meta"
	responseStartKey = "response_meta_started"
	cacheHitKey      = "cache_hit"
)

// WithResponseMeta prepares the meta block rendered into every JSON envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta["request_id"] = id
		}
		c.Set(responseStartKey, time.Now())
		c.Set(responseMetaKey, meta)
		c.Next()
	}
}

// SetCacheHit records whether the payload came from the read cache.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := ensureMeta(c)
	meta[cacheHitKey] = hit
}

// ExtractMeta returns the metadata for the response being written, stamped
// with the time spent so far.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	if started, ok := c.Get(responseStartKey); ok {
		if t, ok := started.(time.Time); ok {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	if c != nil {
		c.Set(responseMetaKey, meta)
	}
	return meta
}
