package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/gin-gonic/gin"
)

var ErrUnsupportedMediaType = apperr.Validation("unsupported_media_type", "Content-Type doit être application/json")

// RequireJSON rejects write requests that carry a body in another format.
// Body-less writes such as the validate endpoint pass through.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength == 0 {
				break
			}
			ct := c.GetHeader("Content-Type")
			// allow "application/json; charset=utf-8"
			if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				body := ErrUnsupportedMediaType.Body()
				body["request_id"] = RequestIDFrom(c)
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, body)
				return
			}
		}
		c.Next()
	}
}
