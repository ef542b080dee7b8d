package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	maxRequestIDLength = 64
)

// RequestIDMiddleware 透传或生成请求 ID，写回响应头
func RequestIDMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		id = toValidUTF8(id)

		c.Set(requestIDKey, id)
		c.Response.Header.Set(RequestIDHeader, id)
		c.Next(ctx)
	}
}

func GetRequestID(c *app.RequestContext) string {
	return c.GetString(requestIDKey)
}
