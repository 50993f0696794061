package middleware

import (
	"context"
	"strings"

	"algotrack/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"
	userIDHeader    = "X-User-Id"

	traceIDContextKey   = "trace_id"
	requestIDContextKey = "request_id"
	userIDContextKey    = "user_id"
)

// TraceContextConfig controls how trace/request/user id are extracted and written.
type TraceContextConfig struct {
	AllowUserIDHeader bool
	WriteUserIDHeader bool
}

// TraceContextMiddleware ensures trace/request/user id are in context and response headers.
func TraceContextMiddleware() gin.HandlerFunc {
	return TraceContextMiddlewareWithConfig(TraceContextConfig{
		AllowUserIDHeader: true,
		WriteUserIDHeader: true,
	})
}

// TraceContextMiddlewareWithConfig is the configurable version of TraceContextMiddleware.
func TraceContextMiddlewareWithConfig(cfg TraceContextConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(traceIDHeader))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		propagate(c, traceIDContextKey, contextkey.TraceID, traceIDHeader, traceID)

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		propagate(c, requestIDContextKey, contextkey.RequestID, requestIDHeader, requestID)

		if cfg.AllowUserIDHeader {
			if userID := strings.TrimSpace(c.GetHeader(userIDHeader)); userID != "" {
				header := userIDHeader
				if !cfg.WriteUserIDHeader {
					header = ""
				}
				propagate(c, userIDContextKey, contextkey.UserID, header, userID)
			}
		}

		c.Next()
	}
}

// propagate stores the value under the gin key, the request context key,
// and, when header is non-empty, the response header.
func propagate(c *gin.Context, ginKey string, ctxKey interface{}, header, value string) {
	c.Set(ginKey, value)
	ctx := context.WithValue(c.Request.Context(), ctxKey, value)
	c.Request = c.Request.WithContext(ctx)
	if header != "" {
		c.Writer.Header().Set(header, value)
	}
}
