package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// responseMeta collects envelope metadata for one request. Handlers read it before writing the body, so
// the elapsed time is measured at extraction rather than after the response is flushed.
type responseMeta struct {
	mu      sync.Mutex
	started time.Time
	values  map[string]interface{}
}

// WithResponseMeta starts the request clock and attaches an empty metadata set.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{started: time.Now(), values: map[string]interface{}{}})
		c.Next()
	}
}

// SetCacheHit records whether the response was served from the catalog cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, "cache_hit", hit)
}

// SetMeta records an arbitrary metadata value. It is a no-op when WithResponseMeta is not installed.
func SetMeta(c *gin.Context, key string, value interface{}) {
	meta := metaFromContext(c)
	if meta == nil {
		return
	}
	meta.mu.Lock()
	meta.values[key] = value
	meta.mu.Unlock()
}

// ExtractMeta returns a copy of the recorded metadata plus processing_time_ms, or nil without WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaFromContext(c)
	if meta == nil {
		return nil
	}
	meta.mu.Lock()
	defer meta.mu.Unlock()
	out := make(map[string]interface{}, len(meta.values)+1)
	for k, v := range meta.values {
		out[k] = v
	}
	out["processing_time_ms"] = time.Since(meta.started).Milliseconds()
	return out
}

func metaFromContext(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, _ := value.(*responseMeta)
	return meta
}
