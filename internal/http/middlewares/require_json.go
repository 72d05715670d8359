package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects non-JSON bodies up front. It belongs only on routes
// that read a request body; cookie-driven endpoints send none.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		ct := strings.ToLower(c.GetHeader("Content-Type"))

		// allow "application/json; charset=utf-8" and +json media types
		if mt, _, found := strings.Cut(ct, ";"); found {
			ct = strings.TrimSpace(mt)
		}

		if ct != "application/json" && !strings.HasSuffix(ct, "+json") {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
				"error": gin.H{
					"code":    "unsupported_media_type",
					"message": "Content-Type must be application/json",
				},
			})
			return
		}

		c.Next()
	}
}
