package middlewares

import (
	"github.com/geocoder89/taskhub/internal/apperr"
	"github.com/gin-gonic/gin"
)

// WriteError aborts the chain with e rendered as the flat error body.
func WriteError(c *gin.Context, e *apperr.Error) {
	body := e.Body()
	if id := RequestIDFrom(c); id != "" {
		body["request_id"] = id
	}
	c.AbortWithStatusJSON(e.Kind.HTTPStatus(), body)
}

func RequestIDFrom(c *gin.Context) string {
	if v, ok := c.Get(CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.GetHeader(requestIDHeader)
}
