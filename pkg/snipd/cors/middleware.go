package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware answers preflight requests with 204 and attaches the
// configured CORS headers to every API and health response. It is
// installed engine-wide so preflights short-circuit before routing.
func Middleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			setHeaders(c, origin)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || path == "/health" {
			setHeaders(c, origin)
		}

		c.Next()
	}
}

func setHeaders(c *gin.Context, origin string) {
	header := c.Writer.Header()
	header.Set("Access-Control-Allow-Origin", origin)
	header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	header.Set("Access-Control-Max-Age", "86400")
}
