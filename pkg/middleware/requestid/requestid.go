package requestid

import (
	"context"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerKey  = "X-Request-ID"
	contextKey = "request_id"
)

type ctxKey struct{}

// Scanner agents number their submissions; anything outside this alphabet is
// replaced so log lines stay parseable.
var validID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// Middleware tags each request with an id, reusing one supplied by the client
// when it is well formed. The id is stored on the gin context and on the
// request context so services can log it.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerKey)
		if !validID.MatchString(id) {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, id))
		c.Writer.Header().Set(headerKey, id)
		c.Next()
	}
}

// Value returns the request id stored on the gin context.
func Value(c *gin.Context) string {
	id, _ := c.Value(contextKey).(string)
	return id
}

// FromContext returns the request id carried by ctx, if any.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
