// Package contextkey defines the context keys shared by the HTTP
// middleware and the logger.
package contextkey

// key is unexported so values set under these keys cannot collide with
// other packages' context values.
type key string

const (
	TraceID   key = "trace_id"
	RequestID key = "request_id"
	UserID    key = "user_id"
)
